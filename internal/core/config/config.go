package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type RateGateCfg struct {
	Driver    string // none, memory or redis
	Size      int
	RedisAddr string
	OpTimeout time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type MetricsCfg struct {
	Enabled bool
	Path    string
}

type Config struct {
	Addr          string
	LogLevel      string
	LogConsole    bool
	LogSampleN    int
	APIHost       string
	AccessToken   string
	HTTPTimeout   time.Duration
	OutboundRPS   float64 // 0 disables pacing
	OutboundBurst int
	RateGate      RateGateCfg
	Events        EventsCfg
	Metrics       MetricsCfg
}

func FromEnv() Config {
	burst := getint("OUTBOUND_BURST", 1)
	if burst < 1 {
		burst = 1
	}
	driver := strings.ToLower(strings.TrimSpace(getenv("RATE_GATE_DRIVER", "none")))
	switch driver {
	case "none", "memory", "redis":
	default:
		driver = "none"
	}

	return Config{
		Addr:          getenv("ADDR", ":8090"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogConsole:    getbool("LOG_CONSOLE", false),
		LogSampleN:    getint("LOG_SAMPLE_N", 0),
		APIHost:       getenv("MAPBOX_API_HOST", "api.mapbox.com"),
		AccessToken:   getenv("MAPBOX_ACCESS_TOKEN", ""),
		HTTPTimeout:   getduration("HTTP_TIMEOUT", 30*time.Second),
		OutboundRPS:   getfloat("OUTBOUND_RPS", 0),
		OutboundBurst: burst,
		RateGate: RateGateCfg{
			Driver:    driver,
			Size:      getint("RATE_GATE_SIZE", 1024),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			OpTimeout: getduration("RATE_GATE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "snapshot-events"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", true),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// splits "a, b,,c" into [a b c]
func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
