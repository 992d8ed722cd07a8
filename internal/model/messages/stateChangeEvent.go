package messages

import (
	"time"

	"github.com/pi-garden/irrigationd/internal/model/entities"
)

// StateChangeEvent is emitted when a zone output changes state.
type StateChangeEvent struct {
	ZoneID    string             `json:"zone_id"`
	NewState  entities.ZoneState `json:"new_state"`
	Duration  time.Duration      `json:"duration"`
	Timestamp time.Time          `json:"timestamp"`
}
