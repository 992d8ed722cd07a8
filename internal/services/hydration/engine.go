package hydration

import (
	"math"

	"github.com/pi-garden/irrigationd/internal/model"
)

// Strategy computes a hydration-need score from a fused sensor snapshot.
// Implementations must be pure: same input, same score, no side effects.
type Strategy interface {
	Score(in model.SensorFusionInput) model.HydrationScore
}

// Params are the tunable constants of the default engine. The defaults
// are starting points for a warm-climate lawn, not calibrated truths.
type Params struct {
	SoilWeight float64 // share of the blend taken by soil moisture
	RainWeight float64 // share taken by recent rainfall

	RainSaturationIn float64 // 72h rainfall that counts as fully wet, inches

	HeatThresholdF  float64 // above this the bias pushes toward "needs water"
	HeatBias        float64
	ExtremeHeatF    float64
	ExtremeHeatBias float64
	ColdThresholdF  float64 // below this evaporation is low, bias raises the score
	ColdBias        float64

	HumidityHighPct float64 // humid + hot reduces evaporative demand a little
	HumidityTempF   float64
	HumidityBias    float64

	GreennessGain float64 // scales (greenness - 0.5) into the score
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		SoilWeight:       0.7,
		RainWeight:       0.3,
		RainSaturationIn: 1.5,
		HeatThresholdF:   93,
		HeatBias:         -1.0,
		ExtremeHeatF:     100,
		ExtremeHeatBias:  -0.5,
		ColdThresholdF:   45,
		ColdBias:         1.0,
		HumidityHighPct:  85,
		HumidityTempF:    80,
		HumidityBias:     0.3,
		GreennessGain:    1.5,
	}
}

// Engine is the default scoring strategy. Zero-value is not usable;
// construct with NewEngine.
type Engine struct {
	p Params
}

var _ Strategy = (*Engine)(nil)

func NewEngine(p Params) *Engine {
	if p.SoilWeight <= 0 && p.RainWeight <= 0 {
		p = DefaultParams()
	}
	if p.RainSaturationIn <= 0 {
		p.RainSaturationIn = 1.5
	}
	return &Engine{p: p}
}

// Score maps the snapshot to the inverted 0..10 need scale.
// The vision override flags win outright: standing water forces 10,
// dry patches force 0. Otherwise the score is a weighted blend of
// normalized soil moisture and recent rainfall plus a temperature
// bias, clamped to [0,10] and rounded to 2 decimals. The rainfall
// term is Rain72hIn plus the forecast; Rain24hIn is inside that
// rolling window already and never blended on its own.
func (e *Engine) Score(in model.SensorFusionInput) model.HydrationScore {
	soil := clamp(in.SoilMoisturePct, 0, 100) / 100.0
	rain := clamp(in.Rain72hIn+in.ForecastRain24In, 0, e.p.RainSaturationIn) / e.p.RainSaturationIn

	soilC := 10 * e.p.SoilWeight * soil
	rainC := 10 * e.p.RainWeight * rain

	tempBias := 0.0
	switch {
	case in.AmbientTempF >= e.p.ExtremeHeatF:
		tempBias = e.p.HeatBias + e.p.ExtremeHeatBias
	case in.AmbientTempF >= e.p.HeatThresholdF:
		tempBias = e.p.HeatBias
	case in.AmbientTempF <= e.p.ColdThresholdF:
		tempBias = e.p.ColdBias
	}

	greenC := (clamp(in.GreennessScore, 0, 1) - 0.5) * e.p.GreennessGain

	humidC := 0.0
	if in.HumidityPct >= e.p.HumidityHighPct && in.AmbientTempF >= e.p.HumidityTempF {
		humidC = e.p.HumidityBias
	}

	explain := map[string]float64{
		"soil":      round2(soilC),
		"rain":      round2(rainC),
		"temp_bias": round2(tempBias),
		"greenness": round2(greenC),
		"humidity":  round2(humidC),
	}

	// Vision flags take precedence over the blend.
	if in.WaterFlag {
		explain["override"] = 10
		return model.HydrationScore{Value: 10, Advisory: advisory(10), Explain: explain}
	}
	if in.DryFlag {
		explain["override"] = 0
		return model.HydrationScore{Value: 0, Advisory: advisory(0), Explain: explain}
	}

	v := round2(clamp(soilC+rainC+tempBias+greenC+humidC, 0, 10))
	return model.HydrationScore{Value: v, Advisory: advisory(v), Explain: explain}
}

func advisory(v float64) string {
	switch {
	case v <= 2.5:
		return "very dry: increase runtime today"
	case v <= 4.0:
		return "a bit dry: run normal or +25%"
	case v <= 6.0:
		return "optimal: run normal schedule"
	case v <= 8.0:
		return "moist: consider -25% or skip if cool"
	default:
		return "oversaturated: skip watering"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
