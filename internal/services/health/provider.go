package health

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pi-garden/irrigationd/internal/model/messages"
	"github.com/pi-garden/irrigationd/pkg/dedup"
)

// Snapshot is the vegetation-health slice of the fused scoring input.
type Snapshot struct {
	Greenness float64   `json:"greenness"` // 0..1
	DryFlag   bool      `json:"dry_flag"`
	WaterFlag bool      `json:"water_flag"`
	Timestamp time.Time `json:"timestamp"`
}

// Provider hands out the latest vegetation-health snapshot. There is
// always an answer: before any observation arrives the neutral default
// applies (mid greenness, no flags).
type Provider interface {
	Snapshot() Snapshot
}

// Default is the neutral snapshot used when the vision side has said
// nothing yet. It contributes nothing to the hydration score.
func Default() Snapshot {
	return Snapshot{Greenness: 0.5}
}

// Static always returns a fixed snapshot; the trivial strategy that is
// always available.
type Static struct{ Snap Snapshot }

var _ Provider = (*Static)(nil)

func (s *Static) Snapshot() Snapshot {
	if s.Snap == (Snapshot{}) {
		return Default()
	}
	return s.Snap
}

// Cache is an MQTT-fed provider: the vision pipeline publishes
// HealthEvent observations and the cache keeps the latest one. QoS 1
// redeliveries are dropped by payload hash.
type Cache struct {
	mu     sync.RWMutex
	last   *Snapshot
	filter *dedup.Filter
}

var _ Provider = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{filter: dedup.New(10*time.Minute, 20000)}
}

// Handle is the broker consumer handler for event/health topics.
func (c *Cache) Handle(_ string, m mqtt.Message) error {
	sum := sha256.Sum256(m.Payload())
	if !c.filter.Fresh(hex.EncodeToString(sum[:])) {
		return nil
	}

	var evt messages.HealthEvent
	if err := json.Unmarshal(m.Payload(), &evt); err != nil {
		log.Printf("health: bad payload on %s: %v", m.Topic(), err)
		return nil
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	c.mu.Lock()
	c.last = &Snapshot{
		Greenness: clamp01(evt.Greenness),
		DryFlag:   evt.DryFlag,
		WaterFlag: evt.WaterFlag,
		Timestamp: ts,
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return Default()
	}
	return *c.last
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
