package main

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port         string
	SchedulePath string

	// Actuation
	ZonePins      map[string]string // zone -> pin name, e.g. "1=GPIO17,2=GPIO27"
	ActiveLow     bool
	MaxRunMinutes int
	SimIntervalMs int

	// MQTT (optional; empty host disables event publishing)
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	HealthTopic  string

	// Weather (optional; empty key falls back to defaults)
	OWMAPIKey string
	Latitude  float64
	Longitude float64

	// Influx audit sink (optional)
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

// parsePins reads "1=GPIO17,2=GPIO27" into a zone -> pin map.
func parsePins(s string) map[string]string {
	out := make(map[string]string)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		zone, pin := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if zone != "" && pin != "" {
			out[zone] = pin
		}
	}
	return out
}

func loadConfig() Config {
	return Config{
		Port:         getenv("PORT", "5050"),
		SchedulePath: getenv("SCHEDULE_PATH", "data/schedule.json"),

		ZonePins:      parsePins(getenv("ZONE_PINS", "1=GPIO17")),
		ActiveLow:     getenvBool("RELAY_ACTIVE_LOW", true),
		MaxRunMinutes: getenvInt("MAX_RUN_MINUTES", 30),
		SimIntervalMs: getenvInt("SIM_INTERVAL_MS", 100),

		MQTTHost:     getenv("MQTT_HOST", ""),
		MQTTPort:     getenvInt("MQTT_PORT", 1883),
		MQTTUser:     getenv("MQTT_USER", "guest"),
		MQTTPassword: getenv("MQTT_PASSWORD", "guest"),
		HealthTopic:  getenv("HEALTH_SUB_TOPIC", "event/health/#"),

		OWMAPIKey: getenv("OWM_API_KEY", ""),
		Latitude:  getenvFloat("LATITUDE", 29.76),
		Longitude: getenvFloat("LONGITUDE", -95.37),

		InfluxURL:    getenv("INFLUX_URL", ""),
		InfluxToken:  getenv("INFLUX_TOKEN", ""),
		InfluxOrg:    getenv("INFLUX_ORG", "garden"),
		InfluxBucket: getenv("INFLUX_BUCKET", "irrigation"),
	}
}
