package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pi-garden/irrigationd/internal/model"
	"github.com/pi-garden/irrigationd/internal/model/messages"
	"github.com/pi-garden/irrigationd/internal/services/actuator"
	"github.com/pi-garden/irrigationd/internal/services/audit"
	"github.com/pi-garden/irrigationd/internal/services/health"
	"github.com/pi-garden/irrigationd/internal/services/hydration"
	"github.com/pi-garden/irrigationd/internal/services/policy"
	"github.com/pi-garden/irrigationd/internal/services/schedule"
	"github.com/pi-garden/irrigationd/internal/services/weather"
	"github.com/pi-garden/irrigationd/pkg/broker"
)

// PublisherFactory returns a publisher bound to a topic. Nil means the
// process runs without a broker; events are then skipped silently.
type PublisherFactory func(topic string) broker.IPublisher

// PlanResult is what planAndRun hands back to the HTTP layer.
type PlanResult struct {
	Decision policy.Decision      `json:"decision"`
	Score    model.HydrationScore `json:"score"`
	Record   *model.RunRecord     `json:"run_record,omitempty"`
}

// Orchestrator is the façade the HTTP layer calls. It sequences
// scoring, decision and actuation, and keeps the schedule store and
// the audit trail consistent with what actually happened.
type Orchestrator struct {
	store   *schedule.Store
	scorer  hydration.Strategy
	policy  *policy.Policy
	driver  *actuator.Driver
	weather weather.Provider
	health  health.Provider
	audit   *audit.Recorder // optional
	makePub PublisherFactory
	metrics *Metrics

	decisionTopicTmpl string
	stateTopicTmpl    string
	resultTopicTmpl   string
}

func NewOrchestrator(
	store *schedule.Store,
	scorer hydration.Strategy,
	pol *policy.Policy,
	driver *actuator.Driver,
	wp weather.Provider,
	hp health.Provider,
	rec *audit.Recorder,
	makePub PublisherFactory,
	metrics *Metrics,
) *Orchestrator {
	if wp == nil {
		wp = &weather.Static{}
	}
	if hp == nil {
		hp = &health.Static{}
	}
	return &Orchestrator{
		store:             store,
		scorer:            scorer,
		policy:            pol,
		driver:            driver,
		weather:           wp,
		health:            hp,
		audit:             rec,
		makePub:           makePub,
		metrics:           metrics,
		decisionTopicTmpl: "event/decision/{zone}",
		stateTopicTmpl:    "event/stateChange/{zone}",
		resultTopicTmpl:   "event/runResult/{zone}",
	}
}

// fuse fills the fields the caller left empty from the weather and
// health caches, so a bare request still scores against the best
// available picture. Empty means zero-valued: an explicit zero in the
// weather fields or the greenness score is indistinguishable from
// absence and gets the provider fill (see SensorFusionInput).
func (o *Orchestrator) fuse(ctx context.Context, in model.SensorFusionInput) model.SensorFusionInput {
	if in.AmbientTempF == 0 || in.HumidityPct == 0 ||
		(in.Rain24hIn == 0 && in.Rain72hIn == 0 && in.ForecastRain24In == 0) {
		w := o.weather.Snapshot(ctx)
		if in.AmbientTempF == 0 {
			in.AmbientTempF = w.TempF
		}
		if in.HumidityPct == 0 {
			in.HumidityPct = w.HumidityPct
		}
		if in.Rain24hIn == 0 && in.Rain72hIn == 0 && in.ForecastRain24In == 0 {
			in.Rain24hIn = w.Rain24hIn
			in.Rain72hIn = w.Rain72hIn
			in.ForecastRain24In = w.ForecastRain24In
		}
	}
	if in.GreennessScore == 0 && !in.DryFlag && !in.WaterFlag {
		h := o.health.Snapshot()
		in.GreennessScore = h.Greenness
		in.DryFlag = h.DryFlag
		in.WaterFlag = h.WaterFlag
	}
	return in
}

// ScoreHydration fuses the signals with the cached providers and runs
// the scoring engine. It never fails; out-of-range inputs are clamped.
func (o *Orchestrator) ScoreHydration(ctx context.Context, in model.SensorFusionInput) model.HydrationScore {
	score := o.scorer.Score(o.fuse(ctx, in))
	o.metrics.ObserveScore(score.Value)
	return score
}

// Schedule returns the current schedule state. A corrupted store is
// reported once as a warning and answered with the restored defaults.
func (o *Orchestrator) Schedule() (model.ScheduleState, error) {
	st, err := o.store.Load()
	if errors.Is(err, schedule.ErrCorruptSchedule) {
		log.Printf("orchestrator: %v", err)
		return st, nil
	}
	return st, err
}

// UpdateZone merges the supplied fields into a zone's config.
func (o *Orchestrator) UpdateZone(zoneID string, minutes *int, enabled *bool) (model.ZoneConfig, error) {
	return o.store.UpdateZone(zoneID, minutes, enabled)
}

// RemoveZone deletes a zone's config.
func (o *Orchestrator) RemoveZone(zoneID string) error {
	return o.store.RemoveZone(zoneID)
}

// AbortRun cancels the zone's active cycle, if any. The blocked
// PlanAndRun call persists and publishes the aborted record itself.
func (o *Orchestrator) AbortRun(zoneID string) bool {
	return o.driver.Abort(zoneID)
}

// PlanAndRun is the core sequence: load the zone's schedule entry
// (creating the default on first reference), score the fused signals,
// decide, actuate when the decision is a run, and persist a run record
// for every attempt, skips included. A concurrent run on the same zone
// surfaces actuator.ErrZoneBusy; an interrupted cycle surfaces
// actuator.ErrRunAborted with the aborted record persisted.
func (o *Orchestrator) PlanAndRun(ctx context.Context, zoneID string, in model.SensorFusionInput) (PlanResult, error) {
	st, err := o.Schedule()
	if err != nil {
		return PlanResult{}, err
	}
	cfg := st.Zone(zoneID)
	if cfg == nil {
		created, uerr := o.store.UpdateZone(zoneID, nil, nil)
		if uerr != nil {
			return PlanResult{}, uerr
		}
		cfg = &created
	}

	score := o.ScoreHydration(ctx, in)
	o.audit.RecordScore(zoneID, score)

	dec := o.policy.Decide(*cfg, score)
	o.metrics.CountDecision(dec)
	o.publishDecision(zoneID, dec, score)

	if dec.Action == policy.ActionSkip {
		rec := model.RunRecord{
			ID:        uuid.NewString(),
			ZoneID:    zoneID,
			StartedAt: time.Now().UTC(),
			Mode:      o.driver.Mode(),
			Outcome:   model.OutcomeSkipped,
			Reason:    dec.Reason,
		}
		if err := o.store.RecordRun(zoneID, rec); err != nil {
			return PlanResult{}, err
		}
		o.audit.RecordRun(rec)
		return PlanResult{Decision: dec, Score: score, Record: &rec}, nil
	}

	// State events track the valve, not the intent: ON is published
	// from the driver's start hook so a busy rejection or a failed
	// enable never announces a state the zone is not in.
	var started bool
	rec, runErr := o.driver.RunNotify(ctx, zoneID, dec.DurationSec, func() {
		started = true
		o.publishState(zoneID, model.ZoneOn, time.Duration(dec.DurationSec*float64(time.Second)))
	})

	if errors.Is(runErr, actuator.ErrZoneBusy) {
		o.metrics.CountBusy()
		return PlanResult{Decision: dec, Score: score}, runErr
	}
	if started {
		o.publishState(zoneID, model.ZoneOff, 0)
	}

	if err := o.store.RecordRun(zoneID, rec); err != nil {
		return PlanResult{}, err
	}
	o.audit.RecordRun(rec)
	o.metrics.CountRun(rec)
	o.publishResult(rec)

	return PlanResult{Decision: dec, Score: score, Record: &rec}, runErr
}

func (o *Orchestrator) publishDecision(zoneID string, dec policy.Decision, score model.HydrationScore) {
	evt := messages.DecisionEvent{
		ZoneID:      zoneID,
		Action:      string(dec.Action),
		Reason:      dec.Reason,
		Score:       score.Value,
		DurationSec: dec.DurationSec,
		Timestamp:   time.Now().UTC(),
	}
	o.publish(o.decisionTopicTmpl, zoneID, evt, 1)
}

func (o *Orchestrator) publishState(zoneID string, state model.ZoneState, dur time.Duration) {
	evt := messages.StateChangeEvent{
		ZoneID:    zoneID,
		NewState:  state,
		Duration:  dur,
		Timestamp: time.Now().UTC(),
	}
	o.publish(o.stateTopicTmpl, zoneID, evt, 1)
}

func (o *Orchestrator) publishResult(rec model.RunRecord) {
	evt := messages.RunResultEvent{
		ZoneID:      rec.ZoneID,
		RunID:       rec.ID,
		Mode:        rec.Mode,
		Outcome:     rec.Outcome,
		Reason:      rec.Reason,
		DurationSec: rec.DurationSec,
		StartedAt:   rec.StartedAt,
		Timestamp:   time.Now().UTC(),
	}
	o.publish(o.resultTopicTmpl, rec.ZoneID, evt, 1)
}

func (o *Orchestrator) publish(tmpl, zoneID string, evt any, qos byte) {
	if o.makePub == nil {
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	topic := strings.ReplaceAll(tmpl, "{zone}", zoneID)
	if err := o.makePub(topic).PublishQos(qos, false, b); err != nil {
		log.Printf("orchestrator: publish %s: %v", topic, err)
	}
}
