package health

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pi-garden/irrigationd/internal/model/messages"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func healthMsg(t *testing.T, evt messages.HealthEvent) *fakeMessage {
	t.Helper()
	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}
	return &fakeMessage{topic: "event/health/1", payload: b}
}

func TestCacheDefaultBeforeFirstObservation(t *testing.T) {
	c := NewCache()
	got := c.Snapshot()
	if got.Greenness != 0.5 || got.DryFlag || got.WaterFlag {
		t.Fatalf("expected the neutral default, got %+v", got)
	}
}

func TestCacheKeepsLatestObservation(t *testing.T) {
	c := NewCache()
	ts := time.Now().UTC().Truncate(time.Second)
	if err := c.Handle("event/health/1", healthMsg(t, messages.HealthEvent{
		ZoneID: "1", Greenness: 0.8, DryFlag: true, Timestamp: ts,
	})); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got := c.Snapshot()
	if got.Greenness != 0.8 || !got.DryFlag || got.WaterFlag {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Fatalf("timestamp not carried: %s vs %s", got.Timestamp, ts)
	}
}

func TestCacheClampsGreenness(t *testing.T) {
	c := NewCache()
	if err := c.Handle("event/health/1", healthMsg(t, messages.HealthEvent{Greenness: 3.2})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if g := c.Snapshot().Greenness; g != 1 {
		t.Fatalf("greenness should clamp to 1, got %.2f", g)
	}
}

func TestCacheDropsRedelivery(t *testing.T) {
	c := NewCache()
	first := healthMsg(t, messages.HealthEvent{Greenness: 0.9, Timestamp: time.Now().UTC()})
	if err := c.Handle("event/health/1", first); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// QoS 1 redelivery: byte-identical payload must not reapply.
	if err := c.Handle("event/health/1", &fakeMessage{topic: first.topic, payload: first.payload}); err != nil {
		t.Fatalf("handle redelivery: %v", err)
	}
	if g := c.Snapshot().Greenness; g != 0.9 {
		t.Fatalf("redelivery changed the snapshot: %.2f", g)
	}
}

func TestCacheIgnoresGarbagePayload(t *testing.T) {
	c := NewCache()
	if err := c.Handle("event/health/1", &fakeMessage{topic: "event/health/1", payload: []byte("{nope")}); err != nil {
		t.Fatalf("garbage payload should be dropped, not errored: %v", err)
	}
	if got := c.Snapshot(); got.Greenness != 0.5 {
		t.Fatalf("garbage payload altered the cache: %+v", got)
	}
}
