package actuator

import (
	"log"
	"sync"

	"github.com/pi-garden/irrigationd/internal/model"
)

// Output is the capability the driver needs from the actuation
// environment: energize or de-energize one zone's valve. The two
// implementations (GPIO relay board, in-memory simulation) are
// selected once at process start by a hardware probe.
type Output interface {
	Enable(zoneID string) error
	Disable(zoneID string) error
	AllOff() error
	Mode() model.RunMode
}

// Detect probes for output hardware and returns the real GPIO output
// when the pins are reachable, the simulated one otherwise. Missing
// hardware is a mode switch, not an error; it is logged exactly once.
func Detect(pinMap map[string]string, activeLow bool) Output {
	out, err := newGPIOOutput(pinMap, activeLow)
	if err != nil {
		log.Printf("actuator: no output hardware (%v), running simulated", err)
		return NewSimOutput()
	}
	log.Printf("actuator: GPIO outputs ready (%d zones, active_low=%v)", len(pinMap), activeLow)
	return out
}

// SimOutput tracks intended pin states in memory. Enable/Disable never
// fail, which keeps development on machines without a relay board
// responsive while still exercising the full driver path.
type SimOutput struct {
	mu    sync.Mutex
	state map[string]bool
}

var _ Output = (*SimOutput)(nil)

func NewSimOutput() *SimOutput {
	return &SimOutput{state: make(map[string]bool)}
}

func (s *SimOutput) Enable(zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[zoneID] = true
	return nil
}

func (s *SimOutput) Disable(zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[zoneID] = false
	return nil
}

func (s *SimOutput) AllOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for z := range s.state {
		s.state[z] = false
	}
	return nil
}

func (s *SimOutput) Mode() model.RunMode { return model.RunModeSimulated }

// Energized reports the last commanded state for a zone.
func (s *SimOutput) Energized(zoneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[zoneID]
}
