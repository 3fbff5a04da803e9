package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a planning run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusPlanning   RunStatus = "planning"
	RunStatusAccepted   RunStatus = "accepted"
	RunStatusInfeasible RunStatus = "infeasible"
	RunStatusExhausted  RunStatus = "exhausted"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusAccepted, RunStatusInfeasible, RunStatusExhausted, RunStatusFailed:
		return true
	}
	return false
}

// StatusForStop maps a stop kind onto the run status it produces.
func StatusForStop(stop StopKind) RunStatus {
	switch stop {
	case StopAccepted:
		return RunStatusAccepted
	case StopInfeasible:
		return RunStatusInfeasible
	default:
		return RunStatusExhausted
	}
}

// Run is an archived planning run.
type Run struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	UserID         uuid.UUID   `json:"user_id" db:"user_id"`
	SessionID      string      `json:"session_id" db:"session_id"`
	Request        TripRequest `json:"request" db:"request"`
	Status         RunStatus   `json:"status" db:"status"`
	RevisionNumber int         `json:"revision_number" db:"revision_number"`
	FinalItinerary *string     `json:"final_itinerary,omitempty" db:"final_itinerary"`
	Critique       *string     `json:"critique,omitempty" db:"critique"`
	Error          *string     `json:"error,omitempty" db:"error"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}
