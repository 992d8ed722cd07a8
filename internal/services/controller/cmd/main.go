package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pi-garden/irrigationd/internal/services/actuator"
	"github.com/pi-garden/irrigationd/internal/services/audit"
	"github.com/pi-garden/irrigationd/internal/services/controller"
	"github.com/pi-garden/irrigationd/internal/services/health"
	"github.com/pi-garden/irrigationd/internal/services/hydration"
	"github.com/pi-garden/irrigationd/internal/services/policy"
	"github.com/pi-garden/irrigationd/internal/services/schedule"
	"github.com/pi-garden/irrigationd/internal/services/weather"
	"github.com/pi-garden/irrigationd/pkg/broker"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hardware probe: real GPIO when present, simulated otherwise.
	out := actuator.Detect(cfg.ZonePins, cfg.ActiveLow)
	driver := actuator.NewDriver(out, time.Duration(cfg.MaxRunMinutes)*time.Minute)
	driver.SetSimInterval(time.Duration(cfg.SimIntervalMs) * time.Millisecond)

	store := schedule.NewStore(cfg.SchedulePath)
	if _, err := store.Load(); err != nil && !errors.Is(err, schedule.ErrCorruptSchedule) {
		log.Fatalf("schedule init: %v", err)
	}

	// Optional broker: event publishing and health observations.
	var makePub controller.PublisherFactory
	healthProvider := health.Provider(&health.Static{})
	if cfg.MQTTHost != "" {
		clientID := fmt.Sprintf("irrigationd-%s", getenv("HOSTNAME", "local"))
		mq, err := broker.Connect(ctx, &broker.Config{
			Host: cfg.MQTTHost, Port: cfg.MQTTPort,
			User: cfg.MQTTUser, Password: cfg.MQTTPassword,
			ClientID: clientID,
		})
		if err != nil {
			log.Fatalf("MQTT connect failed: %v", err)
		}
		makePub = func(topic string) broker.IPublisher {
			return broker.NewPublisher(mq, topic)
		}
		cache := health.NewCache()
		consumer := broker.NewConsumer(mq, cfg.HealthTopic, cache.Handle)
		go consumer.Consume(ctx)
		healthProvider = cache
	}

	var weatherProvider weather.Provider = &weather.Static{}
	if cfg.OWMAPIKey != "" {
		weatherProvider = weather.NewOWMProvider(cfg.OWMAPIKey, cfg.Latitude, cfg.Longitude, 30*time.Minute)
	}

	var recorder *audit.Recorder
	if cfg.InfluxURL != "" {
		r, err := audit.NewRecorder(audit.Config{
			URL: cfg.InfluxURL, Token: cfg.InfluxToken,
			Org: cfg.InfluxOrg, Bucket: cfg.InfluxBucket,
		})
		if err != nil {
			log.Printf("audit disabled: %v", err)
		} else {
			recorder = r
			defer recorder.Close()
		}
	}

	orch := controller.NewOrchestrator(
		store,
		hydration.NewEngine(hydration.DefaultParams()),
		policy.New(policy.DefaultParams()),
		driver,
		weatherProvider,
		healthProvider,
		recorder,
		makePub,
		controller.NewMetrics(prometheus.DefaultRegisterer),
	)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: controller.NewHTTPMux(orch)}
	go func() {
		log.Printf("irrigationd listening on %s (mode=%s, zones=%d)", srv.Addr, driver.Mode(), len(cfg.ZonePins))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc

	// Shutdown order matters: stop taking requests, then abort active
	// cycles so every valve is de-energized before the process exits.
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
	driver.Shutdown()
	log.Println("irrigationd stopped, outputs off")
}
