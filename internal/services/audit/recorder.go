package audit

import (
	"fmt"
	"log"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/pi-garden/irrigationd/internal/model"
)

// Config for the InfluxDB audit sink.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Recorder writes run records and hydration scores to InfluxDB through
// the async write API and tracks the age of the last write error for
// health reporting. Writes are best-effort: auditing must never block
// or fail an actuation.
type Recorder struct {
	client influxdb2.Client
	write  api.WriteAPI

	mu      sync.RWMutex
	lastErr time.Time
}

func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.URL == "" || cfg.Token == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("audit: influx config incomplete")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	r := &Recorder{
		client:  client,
		write:   client.WriteAPI(cfg.Org, cfg.Bucket),
		lastErr: time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range r.write.Errors() {
			if err != nil {
				r.mu.Lock()
				r.lastErr = time.Now()
				r.mu.Unlock()
				log.Printf("audit: influx write error: %v", err)
			}
		}
	}()
	return r, nil
}

// RecordRun emits one point per actuation attempt, skips included.
func (r *Recorder) RecordRun(rec model.RunRecord) {
	if r == nil {
		return
	}
	tags := map[string]string{
		"zone_id": rec.ZoneID,
		"mode":    string(rec.Mode),
		"outcome": string(rec.Outcome),
	}
	fields := map[string]interface{}{
		"run_id":       rec.ID,
		"duration_sec": rec.DurationSec,
	}
	if rec.Reason != "" {
		fields["reason"] = rec.Reason
	}
	r.write.WritePoint(influxdb2.NewPoint("irrigation_run", tags, fields, rec.StartedAt))
}

// RecordScore emits the fused hydration score for later inspection.
func (r *Recorder) RecordScore(zoneID string, score model.HydrationScore) {
	if r == nil {
		return
	}
	fields := map[string]interface{}{"value": score.Value}
	for k, v := range score.Explain {
		fields["explain_"+k] = v
	}
	r.write.WritePoint(influxdb2.NewPoint("hydration_score",
		map[string]string{"zone_id": zoneID}, fields, time.Now().UTC()))
}

// LastErrorAge reports how long the sink has gone without a write error.
func (r *Recorder) LastErrorAge() time.Duration {
	if r == nil {
		return 24 * time.Hour
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Since(r.lastErr)
}

// Close flushes buffered points and shuts the client down.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.write.Flush()
	r.client.Close()
}
