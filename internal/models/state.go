package models

// Stage names a step of the revision loop.
type Stage string

const (
	StagePlanning    Stage = "planner"
	StageResearching Stage = "researcher"
	StageDrafting    Stage = "drafter"
	StageValidating  Stage = "validator"
)

// StopKind says why a planning run ended.
type StopKind string

const (
	StopAccepted   StopKind = "accepted"
	StopInfeasible StopKind = "infeasible"
	StopExhausted  StopKind = "exhausted"
)

// PlanningState accumulates everything a run has produced so far.
// FinalItinerary is set only once the run has reached a verdict.
type PlanningState struct {
	Request        TripRequest `json:"request"`
	Plan           []string    `json:"plan"`
	SearchResults  []string    `json:"search_results"`
	Draft          string      `json:"draft"`
	Critique       *string     `json:"critique"`
	RevisionNumber int         `json:"revision_number"`
	FinalItinerary *string     `json:"final_itinerary"`
}

// NewPlanningState returns the initial state for a request.
func NewPlanningState(req TripRequest) *PlanningState {
	return &PlanningState{Request: req}
}

// StateDelta carries only the fields a single stage produced.
type StateDelta struct {
	Plan           []string `json:"plan,omitempty"`
	SearchResults  []string `json:"search_results,omitempty"`
	Draft          *string  `json:"draft,omitempty"`
	Critique       *string  `json:"critique,omitempty"`
	ClearCritique  bool     `json:"clear_critique,omitempty"`
	RevisionNumber *int     `json:"revision_number,omitempty"`
	FinalItinerary *string  `json:"final_itinerary,omitempty"`
}

// Apply merges the delta into the state.
func (d StateDelta) Apply(s *PlanningState) {
	if d.Plan != nil {
		s.Plan = d.Plan
	}
	if d.SearchResults != nil {
		s.SearchResults = d.SearchResults
	}
	if d.Draft != nil {
		s.Draft = *d.Draft
	}
	if d.ClearCritique {
		s.Critique = nil
	}
	if d.Critique != nil {
		c := *d.Critique
		s.Critique = &c
	}
	if d.RevisionNumber != nil {
		s.RevisionNumber = *d.RevisionNumber
	}
	if d.FinalItinerary != nil {
		f := *d.FinalItinerary
		s.FinalItinerary = &f
	}
}

// Clone returns a deep copy so callers can hand snapshots to other goroutines.
func (s *PlanningState) Clone() *PlanningState {
	c := *s
	c.Request.Interests = append([]string(nil), s.Request.Interests...)
	c.Plan = append([]string(nil), s.Plan...)
	c.SearchResults = append([]string(nil), s.SearchResults...)
	if s.Critique != nil {
		v := *s.Critique
		c.Critique = &v
	}
	if s.FinalItinerary != nil {
		v := *s.FinalItinerary
		c.FinalItinerary = &v
	}
	return &c
}
