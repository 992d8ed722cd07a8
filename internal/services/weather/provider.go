package weather

import (
	"context"
	"time"
)

// Snapshot is the weather slice of the fused scoring input. Values are
// already in the units the scoring engine expects.
type Snapshot struct {
	TempF            float64   `json:"temp_f"`
	HumidityPct      float64   `json:"humidity_pct"`
	Rain24hIn        float64   `json:"rain_24h_in"`
	Rain72hIn        float64   `json:"rain_72h_in"`
	ForecastRain24In float64   `json:"forecast_rain_24h_in"`
	Timestamp        time.Time `json:"timestamp"`
}

// Provider hands out the latest weather snapshot. Implementations are
// caches that may be stale and must degrade to a conservative default;
// a snapshot is always returned.
type Provider interface {
	Snapshot(ctx context.Context) Snapshot
}

// Default is the conservative fallback used when no weather data is
// available: no rain on the books, mild conditions. It neither forces
// a skip nor inflates the need for water.
func Default() Snapshot {
	return Snapshot{TempF: 75, HumidityPct: 50}
}

// Static always returns a fixed snapshot. Useful as a stand-in when no
// API key is configured, and in tests.
type Static struct{ Snap Snapshot }

var _ Provider = (*Static)(nil)

func (s *Static) Snapshot(context.Context) Snapshot {
	if s.Snap == (Snapshot{}) {
		return Default()
	}
	return s.Snap
}
