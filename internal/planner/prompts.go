package planner

import (
	"fmt"
	"strings"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

const planningInstruction = `You are a travel planning assistant. Analyze the user's request and generate a list of 3-5 specific search queries to gather necessary information (flights, hotels, weather, attractions). Return ONLY a JSON list of strings.`

func planningRequest(state *models.PlanningState) string {
	req := state.Request
	var b strings.Builder
	fmt.Fprintf(&b, "Origin: %s\nDestination: %s\nDates: %s\nBudget: %s\nInterests: %s",
		req.Origin, req.Destination, req.Dates, req.Budget, req.InterestList())
	if state.Critique != nil {
		fmt.Fprintf(&b, "\n\nFeedback from the previous validation (plan queries that address it):\n%s", *state.Critique)
	}
	return b.String()
}

func draftingPrompt(state *models.PlanningState) string {
	req := state.Request
	critique := "None"
	if state.Critique != nil {
		critique = *state.Critique
	}

	return fmt.Sprintf(`You are a travel agent. Create a detailed day-by-day itinerary for a trip from %s to %s.

Constraints:
- Dates: %s
- Budget: %s
- Interests: %s

Here is the research data you found:
%s

Specific Feedback (if any) from previous validation:
%s

Produce a professional Markdown formatted itinerary. Include estimated costs where found.`,
		req.Origin, req.Destination, req.Dates, req.Budget, req.InterestList(),
		strings.Join(state.SearchResults, "\n\n"), critique)
}

func validationPrompt(state *models.PlanningState) string {
	req := state.Request
	return fmt.Sprintf(`Review this itinerary for %s:

%s

User Budget: %s
User Interests: %s

1. Calculate the rough total cost of the itinerary based on the mentioned prices.
2. Compare it to the User Budget.

Is this itinerary feasible within the budget?
If YES, return "VALID".
If NO, return "INFEASIBLE: <Estimate Total Cost> - <Reason>".
Example: "INFEASIBLE: $2500 - Flight costs alone are $2000, leaving too little for hotels."`,
		req.Destination, state.Draft, req.Budget, req.InterestList())
}

func suggestionPrompt(theme string) string {
	return fmt.Sprintf(`Suggest 5 specific travel destinations (City, Country) based on this theme/query: '%s'. Return ONLY a JSON list of strings, for example ["Lisbon, Portugal", "Hanoi, Vietnam"].`, theme)
}

// budgetWarning is the user-facing result of an infeasible run.
func budgetWarning(verdict string) string {
	return fmt.Sprintf("### ⚠️ Budget Issue\n\n%s\n\n**Please increase your budget and try again.**", verdict)
}
