package messages

import (
	"time"

	"github.com/pi-garden/irrigationd/internal/model/entities"
)

// RunResultEvent is published at the end (or failure) of an actuation cycle.
type RunResultEvent struct {
	ZoneID      string              `json:"zone_id"`
	RunID       string              `json:"run_id"`
	Mode        entities.RunMode    `json:"mode"`
	Outcome     entities.RunOutcome `json:"outcome"`
	Reason      string              `json:"reason,omitempty"`
	DurationSec float64             `json:"duration_sec"`
	StartedAt   time.Time           `json:"started_at"`
	Timestamp   time.Time           `json:"timestamp"` // end of cycle
}
