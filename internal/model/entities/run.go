package entities

import "time"

// RunMode distinguishes real valve actuation from the simulated path
// used on machines without output hardware.
type RunMode string

const (
	RunModeReal      RunMode = "real"
	RunModeSimulated RunMode = "simulated"
)

// RunOutcome is the final state of one actuation attempt.
type RunOutcome string

const (
	OutcomeCompleted RunOutcome = "completed"
	OutcomeAborted   RunOutcome = "aborted"
	OutcomeSkipped   RunOutcome = "skipped"
)

// RunRecord is the audit entry for a single actuation attempt.
// It is created when the cycle starts and never mutated after it is
// finalized; the latest record per zone is the authoritative lastRun.
type RunRecord struct {
	ID          string     `json:"id"`
	ZoneID      string     `json:"zone_id"`
	StartedAt   time.Time  `json:"started_at"`
	DurationSec float64    `json:"duration_sec"` // requested duration, >= 0
	Mode        RunMode    `json:"mode"`
	Outcome     RunOutcome `json:"outcome"`
	Reason      string     `json:"reason,omitempty"` // set for skips and aborts
}
