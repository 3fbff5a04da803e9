package models

import (
	"time"
)

// Event types
const (
	EventTypeStageCompleted = "stage_completed"
	EventTypeRunEnded       = "end"
	EventTypeRunFailed      = "error"
)

// StageEvent is the wire form of a run's progress, streamed to clients
// and stored in the run archive.
type StageEvent struct {
	RunID     string      `json:"run_id" db:"run_id"`
	Sequence  int         `json:"sequence" db:"sequence"`
	EventType string      `json:"event_type" db:"event_type"`
	Stage     Stage       `json:"stage,omitempty" db:"stage"`
	Revision  int         `json:"revision" db:"revision"`
	Delta     *StateDelta `json:"delta,omitempty" db:"delta"`
	Outcome   string      `json:"outcome,omitempty" db:"outcome"`
	Stop      StopKind    `json:"stop,omitempty" db:"stop"`
	Error     string      `json:"error,omitempty" db:"error"`
	Timestamp time.Time   `json:"timestamp" db:"created_at"`
}

// Terminal reports whether no further events follow this one.
func (e StageEvent) Terminal() bool {
	return e.EventType == EventTypeRunEnded || e.EventType == EventTypeRunFailed
}
