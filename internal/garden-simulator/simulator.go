package garden_simulator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pi-garden/irrigationd/internal/model"
	"github.com/pi-garden/irrigationd/pkg/broker"
	"github.com/pi-garden/irrigationd/pkg/dedup"
)

// Simulator stands in for a zone's physical garden: it reacts to the
// engine's state-change events by raising or draining the simulated
// soil, and publishes periodic vegetation-health observations the way
// the vision pipeline would.
type Simulator struct {
	mu        sync.Mutex
	zoneID    string
	model     *MoistureModel
	publisher broker.IPublisher
	consumer  broker.IConsumer
	filter    *dedup.Filter
	revert    *time.Timer
}

func NewSimulator(consumer broker.IConsumer, publisher broker.IPublisher,
	m *MoistureModel, zoneID string) *Simulator {
	return &Simulator{
		zoneID:    zoneID,
		model:     m,
		publisher: publisher,
		consumer:  consumer,
		filter:    dedup.New(2*time.Minute, 10000),
	}
}

// Start consumes state changes and publishes an observation every
// interval until ctx is cancelled.
func (s *Simulator) Start(ctx context.Context, interval time.Duration) {
	s.consumer.SetHandler(s.handleStateChange)
	go s.consumer.Consume(ctx)

	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-time.After(interval):
			obs := s.model.Next(s.zoneID)
			log.Printf("garden-sim: zone %s moisture=%.1f%% greenness=%.2f dry=%v water=%v",
				s.zoneID, obs.SoilMoisturePct, obs.Greenness, obs.DryFlag, obs.WaterFlag)
			payload, _ := json.Marshal(obs)
			if err := s.publisher.PublishQos(1, false, payload); err != nil {
				log.Printf("garden-sim: publish: %v", err)
			}
		}
	}
}

func (s *Simulator) handleStateChange(_ string, msg mqtt.Message) error {
	// QoS 1 redeliveries carry the same payload, so the same hash.
	sum := sha256.Sum256(msg.Payload())
	if !s.filter.Fresh(hex.EncodeToString(sum[:])) {
		return nil
	}

	var evt model.StateChangeEvent
	if err := json.Unmarshal(msg.Payload(), &evt); err != nil {
		return fmt.Errorf("garden-sim: bad StateChangeEvent: %w", err)
	}
	if evt.ZoneID != s.zoneID {
		return nil
	}
	s.applyState(evt)
	return nil
}

func (s *Simulator) applyState(evt model.StateChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revert != nil {
		s.revert.Stop()
		s.revert = nil
	}

	watering := evt.NewState == model.ZoneOn
	s.model.SetWatering(watering)
	log.Printf("garden-sim: zone %s -> %s (for %s)", s.zoneID, evt.NewState, evt.Duration)

	// Safety net: if the OFF event is lost, stop watering when the
	// announced duration elapses anyway.
	if watering && evt.Duration > 0 {
		s.revert = time.AfterFunc(evt.Duration, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.model.SetWatering(false)
			s.revert = nil
		})
	}
}
