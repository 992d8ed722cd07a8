package actuator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pi-garden/irrigationd/internal/model"
)

func newTestDriver() (*Driver, *SimOutput) {
	out := NewSimOutput()
	d := NewDriver(out, 30*time.Minute)
	d.SetSimInterval(20 * time.Millisecond)
	return d, out
}

func TestSimRunCompletesWithOutputOff(t *testing.T) {
	d, out := newTestDriver()

	start := time.Now()
	rec, err := d.Run(context.Background(), "1", 600)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("simulated run slept the full duration: %s", elapsed)
	}
	if rec.Outcome != model.OutcomeCompleted || rec.Mode != model.RunModeSimulated {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.DurationSec != 600 {
		t.Fatalf("record should carry the requested duration, got %.0f", rec.DurationSec)
	}
	if out.Energized("1") {
		t.Fatalf("output still energized after completion")
	}
	if d.Active("1") {
		t.Fatalf("zone still marked active after completion")
	}
}

func TestSecondRunOnSameZoneIsRejected(t *testing.T) {
	d, out := newTestDriver()
	d.SetSimInterval(500 * time.Millisecond)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		if _, err := d.Run(context.Background(), "1", 600); err != nil {
			t.Errorf("first run: %v", err)
		}
	}()
	<-started
	waitActive(t, d, "1")

	_, err := d.Run(context.Background(), "1", 600)
	if !errors.Is(err, ErrZoneBusy) {
		t.Fatalf("expected ErrZoneBusy, got %v", err)
	}

	<-done
	if out.Energized("1") {
		t.Fatalf("output still energized after runs returned")
	}
}

func TestAbortEndsCycleWithOutputOff(t *testing.T) {
	d, out := newTestDriver()
	d.SetSimInterval(5 * time.Second)

	type result struct {
		rec model.RunRecord
		err error
	}
	resc := make(chan result, 1)
	go func() {
		rec, err := d.Run(context.Background(), "1", 600)
		resc <- result{rec, err}
	}()
	waitActive(t, d, "1")

	if !d.Abort("1") {
		t.Fatalf("abort found no active cycle")
	}
	res := <-resc
	if !errors.Is(res.err, ErrRunAborted) {
		t.Fatalf("expected ErrRunAborted, got %v", res.err)
	}
	if res.rec.Outcome != model.OutcomeAborted {
		t.Fatalf("expected aborted outcome, got %+v", res.rec)
	}
	if out.Energized("1") {
		t.Fatalf("output still energized after abort")
	}

	if d.Abort("1") {
		t.Fatalf("abort on an idle zone should report false")
	}
}

func TestStartHookFiresWhileEnergized(t *testing.T) {
	d, out := newTestDriver()

	var sawOn bool
	rec, err := d.RunNotify(context.Background(), "1", 600, func() {
		sawOn = out.Energized("1")
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.Outcome != model.OutcomeCompleted {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !sawOn {
		t.Fatalf("start hook ran before the output was energized")
	}
}

func TestStartHookSkippedOnBusyRejection(t *testing.T) {
	d, _ := newTestDriver()
	d.SetSimInterval(500 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := d.Run(context.Background(), "1", 600); err != nil {
			t.Errorf("first run: %v", err)
		}
	}()
	waitActive(t, d, "1")

	hookRan := false
	_, err := d.RunNotify(context.Background(), "1", 600, func() { hookRan = true })
	if !errors.Is(err, ErrZoneBusy) {
		t.Fatalf("expected ErrZoneBusy, got %v", err)
	}
	if hookRan {
		t.Fatalf("start hook must not fire for a rejected cycle")
	}
	<-done
}

func TestContextCancelAbortsRun(t *testing.T) {
	d, out := newTestDriver()
	d.SetSimInterval(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx, "1", 600)
		errc <- err
	}()
	waitActive(t, d, "1")
	cancel()

	if err := <-errc; !errors.Is(err, ErrRunAborted) {
		t.Fatalf("expected ErrRunAborted on context cancel, got %v", err)
	}
	if out.Energized("1") {
		t.Fatalf("output still energized after cancel")
	}
}

func TestDifferentZonesRunConcurrently(t *testing.T) {
	d, out := newTestDriver()
	d.SetSimInterval(200 * time.Millisecond)

	var wg sync.WaitGroup
	for _, zone := range []string{"1", "2", "3"} {
		wg.Add(1)
		go func(z string) {
			defer wg.Done()
			rec, err := d.Run(context.Background(), z, 600)
			if err != nil {
				t.Errorf("zone %s: %v", z, err)
				return
			}
			if rec.Outcome != model.OutcomeCompleted {
				t.Errorf("zone %s: %+v", z, rec)
			}
		}(zone)
	}
	wg.Wait()

	for _, zone := range []string{"1", "2", "3"} {
		if out.Energized(zone) {
			t.Fatalf("zone %s still energized", zone)
		}
	}
}

func TestDurationClampedToCeiling(t *testing.T) {
	out := NewSimOutput()
	d := NewDriver(out, 30*time.Minute)
	d.SetSimInterval(10 * time.Millisecond)

	rec, err := d.Run(context.Background(), "1", 4*3600)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.DurationSec != 30*60 {
		t.Fatalf("expected the 1800s ceiling, got %.0f", rec.DurationSec)
	}
}

func TestShutdownAbortsEverything(t *testing.T) {
	d, out := newTestDriver()
	d.SetSimInterval(5 * time.Second)

	var wg sync.WaitGroup
	for _, zone := range []string{"1", "2"} {
		wg.Add(1)
		go func(z string) {
			defer wg.Done()
			if _, err := d.Run(context.Background(), z, 600); !errors.Is(err, ErrRunAborted) {
				t.Errorf("zone %s: expected ErrRunAborted, got %v", z, err)
			}
		}(zone)
	}
	waitActive(t, d, "1")
	waitActive(t, d, "2")

	d.Shutdown()
	wg.Wait()

	for _, zone := range []string{"1", "2"} {
		if out.Energized(zone) {
			t.Fatalf("zone %s still energized after shutdown", zone)
		}
	}
}

func waitActive(t *testing.T, d *Driver, zoneID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.Active(zoneID) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("zone %s never became active", zoneID)
}
