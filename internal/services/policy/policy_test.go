package policy

import (
	"testing"

	"github.com/pi-garden/irrigationd/internal/model"
)

func score(v float64) model.HydrationScore {
	return model.HydrationScore{Value: v}
}

func TestDisabledZoneAlwaysSkips(t *testing.T) {
	p := New(DefaultParams())
	cfg := model.ZoneConfig{ZoneID: "1", Minutes: 15, Enabled: false}
	for _, v := range []float64{0, 3, 7.9, 10} {
		d := p.Decide(cfg, score(v))
		if d.Action != ActionSkip || d.Reason != "disabled" {
			t.Fatalf("score %.1f: expected Skip(disabled), got %+v", v, d)
		}
	}
}

func TestZeroDurationSkips(t *testing.T) {
	p := New(DefaultParams())
	d := p.Decide(model.ZoneConfig{ZoneID: "1", Minutes: 0, Enabled: true}, score(0))
	if d.Action != ActionSkip || d.Reason != "zero-duration" {
		t.Fatalf("expected Skip(zero-duration), got %+v", d)
	}
}

func TestOversaturatedSkipsEvenWithMinutes(t *testing.T) {
	p := New(DefaultParams())
	cfg := model.ZoneConfig{ZoneID: "1", Minutes: 20, Enabled: true}
	for _, v := range []float64{8.0, 9.5, 10} {
		d := p.Decide(cfg, score(v))
		if d.Action != ActionSkip || d.Reason != "oversaturated" {
			t.Fatalf("score %.1f: expected Skip(oversaturated), got %+v", v, d)
		}
	}
}

func TestFullDurationAtOrBelowNeedThreshold(t *testing.T) {
	p := New(DefaultParams())
	cfg := model.ZoneConfig{ZoneID: "1", Minutes: 10, Enabled: true}
	for _, v := range []float64{0, 1.5, 3.0} {
		d := p.Decide(cfg, score(v))
		if d.Action != ActionRun || d.DurationSec != 600 {
			t.Fatalf("score %.1f: expected Run(600s), got %+v", v, d)
		}
	}
}

func TestDurationNonIncreasingWithScore(t *testing.T) {
	p := New(DefaultParams())
	cfg := model.ZoneConfig{ZoneID: "1", Minutes: 10, Enabled: true}
	prev := 601.0
	for v := 3.0; v < 8.0; v += 0.25 {
		d := p.Decide(cfg, score(v))
		if d.Action != ActionRun {
			t.Fatalf("score %.2f: expected a run, got %+v", v, d)
		}
		if d.DurationSec > prev {
			t.Fatalf("duration increased with score: %.2f -> %.2fs (prev %.2fs)", v, d.DurationSec, prev)
		}
		prev = d.DurationSec
	}
}

func TestSafetyCeilingClampsDuration(t *testing.T) {
	p := New(DefaultParams())
	d := p.Decide(model.ZoneConfig{ZoneID: "1", Minutes: 240, Enabled: true}, score(1))
	if d.Action != ActionRun {
		t.Fatalf("expected a run, got %+v", d)
	}
	if d.DurationSec != 30*60 {
		t.Fatalf("expected the 30min ceiling, got %.0fs", d.DurationSec)
	}
}
