package entities

import "time"

// ZoneState indicates whether a zone's valve output is energized.
type ZoneState string

const (
	ZoneOff ZoneState = "off"
	ZoneOn  ZoneState = "on"
)

// ZoneConfig is the configured run policy for a single irrigation zone.
type ZoneConfig struct {
	ZoneID  string     `json:"zone_id"`
	Minutes int        `json:"minutes"` // configured run length, >= 0
	Enabled bool       `json:"enabled"`
	LastRun *RunRecord `json:"last_run,omitempty"`
}

// ScheduleState is the persisted schedule document, one entry per zone.
// It is owned by the schedule store and mutated only through it.
type ScheduleState struct {
	Zones       map[string]*ZoneConfig `json:"zones"`
	LastUpdated time.Time              `json:"last_updated"`
}

// Zone returns the config for zoneID, or nil if the zone is not configured.
func (s *ScheduleState) Zone(zoneID string) *ZoneConfig {
	if s == nil || s.Zones == nil {
		return nil
	}
	return s.Zones[zoneID]
}
