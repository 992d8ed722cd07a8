package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	gardenSimulator "github.com/pi-garden/irrigationd/internal/garden-simulator"
	"github.com/pi-garden/irrigationd/pkg/broker"
)

func main() {
	zoneID := flag.String("zone-id", "1", "zone to simulate")
	clientID := flag.String("client-id", "garden-sim-1", "MQTT client ID")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	lat := flag.Float64("lat", 29.76, "latitude for the SoilGrids seed")
	lon := flag.Float64("lon", -95.37, "longitude for the SoilGrids seed")
	host := flag.String("mqtt-host", "localhost", "MQTT broker host")
	port := flag.Int("mqtt-port", 1883, "MQTT broker port")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := broker.Connect(ctx, &broker.Config{
		Host: *host, Port: *port,
		User: "guest", Password: "guest",
		ClientID: *clientID,
	})
	if err != nil {
		log.Fatal(err)
	}

	publisher := broker.NewPublisher(client, fmt.Sprintf("event/health/%s", *zoneID))
	consumer := broker.NewConsumer(client, fmt.Sprintf("event/stateChange/%s", *zoneID), nil)

	// Untended soil halves its moisture in about two days.
	halfLife := 48 * time.Hour
	decayPerMin := math.Ln2 / halfLife.Minutes()
	m := gardenSimulator.NewMoistureModel(decayPerMin)
	m.SeedFromSoilGrids(ctx, *lat, *lon)

	sim := gardenSimulator.NewSimulator(consumer, publisher, m, *zoneID)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		<-sigc
		cancel()
	}()

	sim.Start(ctx, *interval)
}
