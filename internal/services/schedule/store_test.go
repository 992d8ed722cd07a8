package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pi-garden/irrigationd/internal/model"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.json")
	return NewStore(path), path
}

func TestLoadEmptyCreatesDefaultAndPersists(t *testing.T) {
	s, path := newTestStore(t)

	st, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	z := st.Zone(DefaultZoneID)
	if z == nil || z.Minutes != DefaultMinutes || !z.Enabled {
		t.Fatalf("expected default zone %q {minutes:10 enabled:true}, got %+v", DefaultZoneID, z)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default state was not persisted: %v", err)
	}

	// A fresh store against the same file must see the same state.
	st2, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if st2.Zone(DefaultZoneID) == nil {
		t.Fatalf("persisted default state missing zone %q", DefaultZoneID)
	}
}

func TestUpdateZoneMergesAndLeavesOthersUntouched(t *testing.T) {
	s, _ := newTestStore(t)

	if _, err := s.UpdateZone("2", intp(25), boolp(false)); err != nil {
		t.Fatalf("update zone 2: %v", err)
	}
	cfg, err := s.UpdateZone("1", intp(15), nil)
	if err != nil {
		t.Fatalf("update zone 1: %v", err)
	}
	if cfg.Minutes != 15 || !cfg.Enabled {
		t.Fatalf("merge lost a field: %+v", cfg)
	}

	st, _ := s.Load()
	if z := st.Zone("1"); z.Minutes != 15 || !z.Enabled {
		t.Fatalf("zone 1 not reflected: %+v", z)
	}
	if z := st.Zone("2"); z.Minutes != 25 || z.Enabled {
		t.Fatalf("zone 2 was touched: %+v", z)
	}
}

func TestUpdateZoneCreatesWithDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	cfg, err := s.UpdateZone("7", nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cfg.Minutes != DefaultMinutes || !cfg.Enabled {
		t.Fatalf("expected defaults on first reference, got %+v", cfg)
	}
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := NewStore(path).Load()
	if !errors.Is(err, ErrCorruptSchedule) {
		t.Fatalf("expected ErrCorruptSchedule, got %v", err)
	}
	if st.Zone(DefaultZoneID) == nil {
		t.Fatalf("fallback state missing default zone: %+v", st)
	}
	if _, serr := os.Stat(path + ".corrupt"); serr != nil {
		t.Fatalf("corrupt file should be kept aside: %v", serr)
	}
}

func TestRecordRunSetsLastRun(t *testing.T) {
	s, _ := newTestStore(t)
	rec := model.RunRecord{
		ID: "r1", ZoneID: "1", StartedAt: time.Now().UTC(),
		DurationSec: 600, Mode: model.RunModeSimulated, Outcome: model.OutcomeCompleted,
	}
	if err := s.RecordRun("1", rec); err != nil {
		t.Fatalf("record run: %v", err)
	}
	st, _ := s.Load()
	lr := st.Zone("1").LastRun
	if lr == nil || lr.ID != "r1" || lr.Outcome != model.OutcomeCompleted {
		t.Fatalf("lastRun not recorded: %+v", lr)
	}
}

func TestRemoveZone(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.UpdateZone("9", intp(5), nil); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveZone("9"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	st, _ := s.Load()
	if st.Zone("9") != nil {
		t.Fatalf("zone 9 still present after removal")
	}
	// Removing again is a no-op.
	if err := s.RemoveZone("9"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestLastUpdatedMonotonic(t *testing.T) {
	s, _ := newTestStore(t)
	st1, _ := s.Load()
	if _, err := s.UpdateZone("1", intp(12), nil); err != nil {
		t.Fatal(err)
	}
	st2, _ := s.Load()
	if st2.LastUpdated.Before(st1.LastUpdated) {
		t.Fatalf("lastUpdated went backwards: %s -> %s", st1.LastUpdated, st2.LastUpdated)
	}
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			zone := "1"
			if n%2 == 1 {
				zone = "2"
			}
			if _, err := s.UpdateZone(zone, intp(n+1), nil); err != nil {
				t.Errorf("update %s: %v", zone, err)
			}
		}(i)
	}
	wg.Wait()

	st, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Zone("1") == nil || st.Zone("2") == nil {
		t.Fatalf("a zone vanished under concurrent updates: %+v", st.Zones)
	}
}

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }
