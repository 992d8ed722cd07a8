package actuator

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/pi-garden/irrigationd/internal/model"
)

// gpioOutput drives relay-board pins through periph.io. Most relay
// boards are active-LOW: driving the pin low closes the relay.
type gpioOutput struct {
	mu        sync.Mutex
	pins      map[string]gpio.PinIO
	activeLow bool
}

var _ Output = (*gpioOutput)(nil)

func newGPIOOutput(pinMap map[string]string, activeLow bool) (*gpioOutput, error) {
	if len(pinMap) == 0 {
		return nil, fmt.Errorf("no zone pins configured")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	g := &gpioOutput{pins: make(map[string]gpio.PinIO, len(pinMap)), activeLow: activeLow}
	for zone, name := range pinMap {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("pin %q for zone %s not present", name, zone)
		}
		g.pins[zone] = p
	}
	// Startup invariant: every valve closed before we accept commands.
	if err := g.AllOff(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *gpioOutput) level(on bool) gpio.Level {
	if g.activeLow {
		return gpio.Level(!on)
	}
	return gpio.Level(on)
}

func (g *gpioOutput) set(zoneID string, on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pins[zoneID]
	if !ok {
		return fmt.Errorf("actuator: unknown zone %s", zoneID)
	}
	if err := p.Out(g.level(on)); err != nil {
		return fmt.Errorf("actuator: set zone %s: %w", zoneID, err)
	}
	return nil
}

func (g *gpioOutput) Enable(zoneID string) error  { return g.set(zoneID, true) }
func (g *gpioOutput) Disable(zoneID string) error { return g.set(zoneID, false) }

func (g *gpioOutput) AllOff() error {
	var firstErr error
	for zone := range g.pins {
		if err := g.set(zone, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (g *gpioOutput) Mode() model.RunMode { return model.RunModeReal }
