package policy

import (
	"math"

	"github.com/pi-garden/irrigationd/internal/model"
)

// Action is the go/no-go outcome of a decision.
type Action string

const (
	ActionRun  Action = "run"
	ActionSkip Action = "skip"
)

// Decision is what the orchestrator executes: either a timed run or a
// skip with the rule that fired.
type Decision struct {
	Action      Action  `json:"action"`
	DurationSec float64 `json:"duration_sec"`
	Reason      string  `json:"reason,omitempty"`
}

// Params holds the decision thresholds. The defaults mirror the score
// bands of the hydration engine; none of them is a hard requirement.
type Params struct {
	NeedThreshold    float64 // at or below: full configured duration
	OversatThreshold float64 // at or above: skip outright
	MaxRunSec        float64 // safety ceiling regardless of config
}

func DefaultParams() Params {
	return Params{
		NeedThreshold:    3.0,
		OversatThreshold: 8.0,
		MaxRunSec:        30 * 60,
	}
}

// Policy turns a zone config plus a hydration score into a Decision.
type Policy struct {
	p Params
}

func New(p Params) *Policy {
	if p.OversatThreshold <= p.NeedThreshold {
		p = DefaultParams()
	}
	if p.MaxRunSec <= 0 {
		p.MaxRunSec = DefaultParams().MaxRunSec
	}
	return &Policy{p: p}
}

// Decide applies the rules in order: disabled zone, zero-duration
// config, oversaturated score, then a run whose duration tapers
// linearly from full (score <= NeedThreshold) down to nothing at the
// oversaturation threshold, so behavior does not flip abruptly at the
// boundary. The result is always capped at MaxRunSec.
func (pl *Policy) Decide(cfg model.ZoneConfig, score model.HydrationScore) Decision {
	if !cfg.Enabled {
		return Decision{Action: ActionSkip, Reason: "disabled"}
	}
	if cfg.Minutes <= 0 {
		return Decision{Action: ActionSkip, Reason: "zero-duration"}
	}
	if score.Value >= pl.p.OversatThreshold {
		return Decision{Action: ActionSkip, Reason: "oversaturated"}
	}

	dur := float64(cfg.Minutes) * 60
	if score.Value > pl.p.NeedThreshold {
		scale := (pl.p.OversatThreshold - score.Value) / (pl.p.OversatThreshold - pl.p.NeedThreshold)
		dur *= scale
	}
	dur = math.Min(dur, pl.p.MaxRunSec)
	if dur <= 0 {
		return Decision{Action: ActionSkip, Reason: "oversaturated"}
	}
	return Decision{Action: ActionRun, DurationSec: math.Round(dur*100) / 100}
}
