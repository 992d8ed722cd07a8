package messages

import "time"

// HealthEvent carries one vegetation-health observation from the
// vision pipeline. Consumed as a cache update; may arrive stale or
// never at all, in which case the health provider's defaults apply.
type HealthEvent struct {
	ZoneID    string    `json:"zone_id,omitempty"`
	Greenness float64   `json:"greenness"` // 0..1, 1 = fully green
	DryFlag   bool      `json:"dry_flag"`
	WaterFlag bool      `json:"water_flag"`
	// Optional soil telemetry riding along from simulated sources.
	SoilMoisturePct float64   `json:"soil_moisture_pct,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
