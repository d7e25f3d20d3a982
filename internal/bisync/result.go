package bisync

import (
	"errors"
	"time"

	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// Status is the outcome class of a pass.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Reason explains a skipped pass.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNoData             Reason = "no_data"
	ReasonRecentOppositeSync Reason = "recent_opposite_sync"
	ReasonNoChanges          Reason = "no_changes"
)

// Result describes one pass.
type Result struct {
	RunID     string          `json:"run_id"`
	Status    Status          `json:"status"`
	Reason    Reason          `json:"reason,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	Table     string          `json:"table"`
	SheetRef  string          `json:"sheet_ref,omitempty"`
	Direction state.Direction `json:"direction"`

	// Rows and Columns give the size of the block that was written.
	Rows         int      `json:"rows"`
	Columns      int      `json:"columns"`
	Deleted      int64    `json:"deleted,omitempty"`
	AddedColumns []string `json:"added_columns,omitempty"`
	Range        string   `json:"range,omitempty"`

	// Warnings holds non-fatal problems, such as a failed autoincrement
	// removal or an externally modified sheet.
	Warnings []string `json:"warnings,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	Err error `json:"-"`
}

// OK reports whether the pass did not fail.
func (r Result) OK() bool {
	return r.Status != StatusError
}

// Wrote reports whether the pass changed the destination.
func (r Result) Wrote() bool {
	return r.Status == StatusSuccess
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, ErrNoData):
		return ReasonNoData
	case errors.Is(err, ErrRecentOppositeSync):
		return ReasonRecentOppositeSync
	case errors.Is(err, ErrNoChanges):
		return ReasonNoChanges
	default:
		return ReasonNone
	}
}
