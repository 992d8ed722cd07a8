package actuator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pi-garden/irrigationd/internal/model"
)

// ErrZoneBusy rejects a run against a zone that already has an active
// cycle. Requests are never queued or retried by the driver.
var ErrZoneBusy = errors.New("actuator: zone busy")

// ErrRunAborted marks a cycle interrupted by shutdown or an explicit
// abort. The output is guaranteed off before this surfaces.
var ErrRunAborted = errors.New("actuator: run aborted")

const defaultSimInterval = 100 * time.Millisecond

// Driver executes timed water-on/water-off cycles, at most one active
// cycle per zone system-wide.
type Driver struct {
	out         Output
	maxRun      time.Duration
	simInterval time.Duration

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewDriver(out Output, maxRun time.Duration) *Driver {
	if maxRun <= 0 {
		maxRun = 30 * time.Minute
	}
	return &Driver{
		out:         out,
		maxRun:      maxRun,
		simInterval: defaultSimInterval,
		active:      make(map[string]context.CancelFunc),
	}
}

// SetSimInterval bounds how long a simulated cycle sleeps. It never
// exceeds the requested duration.
func (d *Driver) SetSimInterval(iv time.Duration) {
	if iv > 0 {
		d.simInterval = iv
	}
}

// Mode reports which output path was selected at start-up.
func (d *Driver) Mode() model.RunMode { return d.out.Mode() }

// Run blocks until the cycle for zoneID completes or is aborted and
// returns the finalized RunRecord. A second concurrent Run on the same
// zone fails immediately with ErrZoneBusy. Whatever happens, the
// zone's output is off by the time Run returns.
func (d *Driver) Run(ctx context.Context, zoneID string, durationSec float64) (model.RunRecord, error) {
	return d.RunNotify(ctx, zoneID, durationSec, nil)
}

// RunNotify is Run with a start hook: started is invoked once the
// zone's output is energized, before the timed wait begins. It is
// never invoked for a rejected or failed-to-enable cycle, which lets
// callers emit state events only for cycles that actually began.
func (d *Driver) RunNotify(ctx context.Context, zoneID string, durationSec float64, started func()) (model.RunRecord, error) {
	if durationSec < 0 {
		durationSec = 0
	}
	dur := time.Duration(durationSec * float64(time.Second))
	if dur > d.maxRun {
		dur = d.maxRun
		durationSec = dur.Seconds()
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	if _, busy := d.active[zoneID]; busy {
		d.mu.Unlock()
		cancel()
		return model.RunRecord{}, ErrZoneBusy
	}
	d.active[zoneID] = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	rec := model.RunRecord{
		ID:          uuid.NewString(),
		ZoneID:      zoneID,
		StartedAt:   time.Now().UTC(),
		DurationSec: durationSec,
		Mode:        d.out.Mode(),
	}

	defer func() {
		// The one hard safety invariant: never leave a valve energized.
		if err := d.out.Disable(zoneID); err != nil {
			log.Printf("driver: zone %s disable failed: %v", zoneID, err)
		}
		d.mu.Lock()
		delete(d.active, zoneID)
		d.mu.Unlock()
		cancel()
		d.wg.Done()
	}()

	if err := d.out.Enable(zoneID); err != nil {
		rec.Outcome = model.OutcomeAborted
		rec.Reason = "enable-failed"
		return rec, err
	}
	log.Printf("driver: zone %s ON for %.0fs (%s)", zoneID, durationSec, rec.Mode)
	if started != nil {
		started()
	}

	wait := dur
	if d.out.Mode() == model.RunModeSimulated && wait > d.simInterval {
		wait = d.simInterval
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		rec.Outcome = model.OutcomeCompleted
		log.Printf("driver: zone %s OFF after %.0fs", zoneID, durationSec)
		return rec, nil
	case <-runCtx.Done():
		rec.Outcome = model.OutcomeAborted
		rec.Reason = "aborted"
		log.Printf("driver: zone %s aborted mid-cycle", zoneID)
		return rec, ErrRunAborted
	}
}

// Abort cancels the active cycle for zoneID, if any. It reports
// whether there was one to cancel.
func (d *Driver) Abort(zoneID string) bool {
	d.mu.Lock()
	cancel, ok := d.active[zoneID]
	d.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active reports whether zoneID currently has a cycle in flight.
func (d *Driver) Active(zoneID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[zoneID]
	return ok
}

// Shutdown aborts every active cycle and waits until each one has
// de-energized its output. Called from the process abort path.
func (d *Driver) Shutdown() {
	d.mu.Lock()
	for _, cancel := range d.active {
		cancel()
	}
	d.mu.Unlock()
	d.wg.Wait()
	if err := d.out.AllOff(); err != nil {
		log.Printf("driver: all-off on shutdown: %v", err)
	}
}
