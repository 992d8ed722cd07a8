package garden_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/pi-garden/irrigationd/internal/model"
)

const (
	// gainPerMin: soil moisture gained per minute while the zone is watering.
	gainPerMin = 0.006

	// defaultSeed when SoilGrids is unreachable.
	defaultSeed = 0.30

	// One fetch at startup, never per tick.
	soilGridsURL = "https://rest.isric.org/soilgrids/v2.0/properties/query?lat=%f&lon=%f&property=wv0010"
)

// MoistureModel holds a simulated soil moisture level in [0..1] that
// decays while idle and climbs while the zone is watering, and derives
// a vegetation-health observation from it.
type MoistureModel struct {
	mu          sync.Mutex
	seeded      bool
	last        time.Time
	moisture    float64
	watering    bool
	decayPerMin float64
	httpClient  *http.Client
}

func NewMoistureModel(decayPerMin float64) *MoistureModel {
	return &MoistureModel{
		decayPerMin: math.Max(0, decayPerMin),
		httpClient:  &http.Client{Timeout: 8 * time.Second},
	}
}

// SeedFromSoilGrids seeds the moisture level from the SoilGrids topsoil
// water-volume layer for the given coordinates. On any failure the
// default seed applies; the simulator never blocks on this.
func (m *MoistureModel) SeedFromSoilGrids(ctx context.Context, lat, lon float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seeded {
		return
	}
	seed := defaultSeed
	if lat != 0 || lon != 0 {
		if v, err := m.fetchSoilMoisture(ctx, lat, lon); err == nil && v >= 0 {
			seed = v
		}
	}
	m.moisture = clamp01(seed)
	m.last = time.Now().UTC()
	m.seeded = true
}

// SetWatering flips the watering state; moisture gained or lost since
// the previous tick is settled first.
func (m *MoistureModel) SetWatering(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceLocked(time.Now().UTC())
	m.watering = on
}

// Next advances the model to now and returns the derived observation.
func (m *MoistureModel) Next(zoneID string) model.HealthEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if !m.seeded {
		m.moisture = defaultSeed
		m.last = now
		m.seeded = true
	}
	m.advanceLocked(now)

	return model.HealthEvent{
		ZoneID:          zoneID,
		Greenness:       greennessFor(m.moisture),
		DryFlag:         m.moisture < 0.12,
		WaterFlag:       m.moisture > 0.92,
		SoilMoisturePct: math.Round(m.moisture*1000) / 10,
		Timestamp:       now,
	}
}

func (m *MoistureModel) advanceLocked(now time.Time) {
	dtMin := now.Sub(m.last).Minutes()
	if dtMin < 0 {
		dtMin = 0
	}
	if m.watering {
		m.moisture = clamp01(m.moisture + gainPerMin*dtMin)
	} else {
		m.moisture = clamp01(m.moisture - m.decayPerMin*dtMin)
	}
	m.last = now
}

// greennessFor maps moisture to a plausible canopy greenness: grass
// browns out below ~15% and again when waterlogged past ~85%.
func greennessFor(moisture float64) float64 {
	switch {
	case moisture < 0.15:
		return clamp01(moisture / 0.15 * 0.4)
	case moisture > 0.85:
		return clamp01(1 - (moisture-0.85)/0.15*0.5)
	default:
		return clamp01(0.4 + (moisture-0.15)/0.70*0.6)
	}
}

func (m *MoistureModel) fetchSoilMoisture(ctx context.Context, lat, lon float64) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(soilGridsURL, lat, lon), nil)
	if err != nil {
		return -1, err
	}
	req.Header.Set("User-Agent", "irrigationd-garden-sim/1.0")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return -1, err
	}
	if resp.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("soilgrids HTTP %d", resp.StatusCode)
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return -1, err
	}
	if v := extractWV(parsed); v >= 0 {
		return normalizeWV(v), nil
	}
	return -1, fmt.Errorf("soilgrids: moisture value not found")
}

// extractWV digs the median topsoil value out of the SoilGrids response
// shape {"properties":{"layers":[{"depths":[{"values":{"Q0.5":...}}]}]}}.
func extractWV(v any) float64 {
	root, ok := v.(map[string]any)
	if !ok {
		return -1
	}
	props, ok := root["properties"].(map[string]any)
	if !ok {
		return -1
	}
	layers, ok := props["layers"].([]any)
	if !ok || len(layers) == 0 {
		return -1
	}
	l0, ok := layers[0].(map[string]any)
	if !ok {
		return -1
	}
	depths, ok := l0["depths"].([]any)
	if !ok || len(depths) == 0 {
		return -1
	}
	d0, ok := depths[0].(map[string]any)
	if !ok {
		return -1
	}
	vals, ok := d0["values"].(map[string]any)
	if !ok {
		return -1
	}
	for _, k := range []string{"Q0.5", "mean", "Q0.95", "Q0.05"} {
		if f, ok := vals[k].(float64); ok {
			return f
		}
	}
	return -1
}

// SoilGrids wv layers come as integers in thousandths of m3/m3.
func normalizeWV(x float64) float64 {
	if x > 1.5 {
		x /= 1000.0
	}
	return clamp01(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
