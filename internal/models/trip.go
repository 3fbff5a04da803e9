package models

import (
	"fmt"
	"strings"
)

// SupportedCurrencies lists the currencies a budget may be expressed in.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "INR", "JPY"}

// SuggestedInterests are the interest tags offered to travellers.
var SuggestedInterests = []string{"Food", "History", "Nature", "Shopping", "Adventure", "Relaxation"}

// DefaultOrigin is used when the traveller lets the planner pick the departure point.
const DefaultOrigin = "Your Location"

// TripRequest is the traveller's immutable input to a planning run.
// No field is validated; every string is passed through to the prompts as-is.
type TripRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Dates       string   `json:"dates"`
	Budget      string   `json:"budget"`
	Interests   []string `json:"interests"`
}

// FormatBudget renders an amount and currency as "<amount> <CUR>".
func FormatBudget(amount int, currency string) string {
	return fmt.Sprintf("%d %s", amount, strings.ToUpper(currency))
}

// InterestList joins the interests with ", ".
func (r TripRequest) InterestList() string {
	return strings.Join(r.Interests, ", ")
}

// Summary is a one-line description of the trip.
func (r TripRequest) Summary() string {
	return fmt.Sprintf("Trip to %s from %s on %s. Budget: %s.", r.Destination, r.Origin, r.Dates, r.Budget)
}
