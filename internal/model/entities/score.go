package entities

// SensorFusionInput is one normalized snapshot of everything the
// scoring engine looks at: soil probe, ambient weather, rain history
// and forecast, and the vegetation-health vector from the vision side.
// Values outside the documented ranges are clamped, never rejected.
//
// Zero doubles as "not supplied" for the weather fields and the
// greenness score: the orchestrator fills zero-valued entries from the
// cached providers before scoring. A caller cannot express a literal
// 0°F, 0% humidity or fully-brown canopy through these fields; the
// vision flags carry the brown/flooded extremes instead.
type SensorFusionInput struct {
	SoilMoisturePct float64 `json:"soil_moisture_pct"` // 0..100
	AmbientTempF    float64 `json:"ambient_temp_f"`
	HumidityPct     float64 `json:"humidity_pct"` // 0..100
	// Rain24hIn is informational: the blend uses Rain72hIn, whose
	// rolling window already covers the last day.
	Rain24hIn        float64 `json:"rain_24h_in"`
	Rain72hIn        float64 `json:"rain_72h_in"`
	ForecastRain24In float64 `json:"forecast_rain_24h_in"`
	GreennessScore   float64 `json:"greenness_score"` // 0..1
	DryFlag          bool    `json:"dry_flag"`        // vision: brown/dry patches
	WaterFlag        bool    `json:"water_flag"`      // vision: standing water
}

// HydrationScore is the fused irrigation-need score on an inverted
// 0..10 scale: 0 = water urgently, 10 = oversaturated, skip.
// Recomputed on demand; never persisted as authoritative state.
type HydrationScore struct {
	Value    float64            `json:"value"`
	Advisory string             `json:"advisory"`
	Explain  map[string]float64 `json:"explain"`
}
