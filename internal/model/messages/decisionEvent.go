package messages

import "time"

// DecisionEvent is published by the orchestrator to record WHY/WHAT was decided.
type DecisionEvent struct {
	ZoneID      string    `json:"zone_id"`
	Action      string    `json:"action"` // "run" | "skip"
	Reason      string    `json:"reason,omitempty"`
	Score       float64   `json:"score"`
	DurationSec float64   `json:"duration_sec"`
	Timestamp   time.Time `json:"timestamp"`
}
