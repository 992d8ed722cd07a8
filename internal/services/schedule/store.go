package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pi-garden/irrigationd/internal/model"
)

// ErrCorruptSchedule signals that the persisted schedule could not be
// read and the default state was restored. Callers log it and move on;
// it is never fatal.
var ErrCorruptSchedule = errors.New("schedule: persisted state corrupted, defaults restored")

const (
	DefaultZoneID  = "1"
	DefaultMinutes = 10
)

// Store owns the persisted schedule document. All reads and updates go
// through it; concurrent updates to the same zone are serialized by a
// per-zone lock, updates to different zones only contend on the final
// document swap.
type Store struct {
	path string

	mu    sync.Mutex // guards state and file writes
	state *model.ScheduleState

	zmu   sync.Mutex
	zones map[string]*sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path, zones: make(map[string]*sync.Mutex)}
}

func defaultState() *model.ScheduleState {
	return &model.ScheduleState{
		Zones: map[string]*model.ZoneConfig{
			DefaultZoneID: {ZoneID: DefaultZoneID, Minutes: DefaultMinutes, Enabled: true},
		},
		LastUpdated: time.Now().UTC(),
	}
}

// Load returns the current schedule state, reading it from disk on
// first use. A missing file yields the default single-zone state,
// persisted immediately. An unreadable file yields the default state
// plus ErrCorruptSchedule; the broken file is kept aside for forensics.
func (s *Store) Load() (model.ScheduleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return snapshot(s.state), nil
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.state = defaultState()
		if werr := s.persistLocked(); werr != nil {
			return snapshot(s.state), werr
		}
		return snapshot(s.state), nil
	}
	if err != nil {
		return model.ScheduleState{}, fmt.Errorf("schedule: read %s: %w", s.path, err)
	}

	var st model.ScheduleState
	if jerr := json.Unmarshal(raw, &st); jerr != nil || st.Zones == nil {
		log.Printf("schedule: corrupt state at %s (%v), restoring defaults", s.path, jerr)
		_ = os.Rename(s.path, s.path+".corrupt")
		s.state = defaultState()
		if werr := s.persistLocked(); werr != nil {
			return snapshot(s.state), werr
		}
		return snapshot(s.state), ErrCorruptSchedule
	}

	// Normalize entries loaded from older documents.
	for id, z := range st.Zones {
		if z == nil {
			st.Zones[id] = &model.ZoneConfig{ZoneID: id, Minutes: DefaultMinutes, Enabled: true}
			continue
		}
		z.ZoneID = id
		if z.Minutes < 0 {
			z.Minutes = 0
		}
	}
	s.state = &st
	return snapshot(s.state), nil
}

// Save replaces the whole document. LastUpdated is kept monotonically
// non-decreasing across saves.
func (s *Store) Save(st model.ScheduleState) (model.ScheduleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := snapshot(&st)
	prev := time.Time{}
	if s.state != nil {
		prev = s.state.LastUpdated
	}
	cp.LastUpdated = time.Now().UTC()
	if cp.LastUpdated.Before(prev) {
		cp.LastUpdated = prev
	}
	s.state = &cp
	if err := s.persistLocked(); err != nil {
		return model.ScheduleState{}, err
	}
	return snapshot(s.state), nil
}

// UpdateZone merges only the supplied fields into the zone's config,
// creating the zone with defaults if it does not exist yet.
func (s *Store) UpdateZone(zoneID string, minutes *int, enabled *bool) (model.ZoneConfig, error) {
	unlock := s.lockZone(zoneID)
	defer unlock()

	if _, err := s.Load(); err != nil && !errors.Is(err, ErrCorruptSchedule) {
		return model.ZoneConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.state.Zones[zoneID]
	if !ok {
		z = &model.ZoneConfig{ZoneID: zoneID, Minutes: DefaultMinutes, Enabled: true}
		s.state.Zones[zoneID] = z
	}
	if minutes != nil {
		m := *minutes
		if m < 0 {
			m = 0
		}
		z.Minutes = m
	}
	if enabled != nil {
		z.Enabled = *enabled
	}
	s.touchLocked()
	if err := s.persistLocked(); err != nil {
		return model.ZoneConfig{}, err
	}
	return *z, nil
}

// RecordRun stores rec as the zone's lastRun, creating the zone entry
// if the run targeted an unconfigured zone.
func (s *Store) RecordRun(zoneID string, rec model.RunRecord) error {
	unlock := s.lockZone(zoneID)
	defer unlock()

	if _, err := s.Load(); err != nil && !errors.Is(err, ErrCorruptSchedule) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.state.Zones[zoneID]
	if !ok {
		z = &model.ZoneConfig{ZoneID: zoneID, Minutes: DefaultMinutes, Enabled: true}
		s.state.Zones[zoneID] = z
	}
	r := rec
	z.LastRun = &r
	s.touchLocked()
	return s.persistLocked()
}

// RemoveZone deletes a zone's config. Removing an unknown zone is a no-op.
func (s *Store) RemoveZone(zoneID string) error {
	unlock := s.lockZone(zoneID)
	defer unlock()

	if _, err := s.Load(); err != nil && !errors.Is(err, ErrCorruptSchedule) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Zones[zoneID]; !ok {
		return nil
	}
	delete(s.state.Zones, zoneID)
	s.touchLocked()
	return s.persistLocked()
}

// touchLocked bumps LastUpdated without letting it go backwards.
func (s *Store) touchLocked() {
	now := time.Now().UTC()
	if now.After(s.state.LastUpdated) {
		s.state.LastUpdated = now
	}
}

// persistLocked writes the document with write-then-rename semantics
// so a crash mid-write never corrupts the previous valid state.
func (s *Store) persistLocked() error {
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("schedule: marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("schedule: mkdir %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("schedule: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("schedule: rename %s: %w", tmp, err)
	}
	return nil
}

func (s *Store) lockZone(zoneID string) func() {
	s.zmu.Lock()
	m, ok := s.zones[zoneID]
	if !ok {
		m = &sync.Mutex{}
		s.zones[zoneID] = m
	}
	s.zmu.Unlock()
	m.Lock()
	return m.Unlock
}

// snapshot deep-copies the state so callers can't mutate the store's copy.
func snapshot(st *model.ScheduleState) model.ScheduleState {
	out := model.ScheduleState{
		Zones:       make(map[string]*model.ZoneConfig, len(st.Zones)),
		LastUpdated: st.LastUpdated,
	}
	for id, z := range st.Zones {
		cp := *z
		if z.LastRun != nil {
			lr := *z.LastRun
			cp.LastRun = &lr
		}
		out.Zones[id] = &cp
	}
	return out
}
