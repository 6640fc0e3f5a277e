package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/static-snapshot/internal/core/config"
	"github.com/mohammed-shakir/static-snapshot/internal/core/health"
	"github.com/mohammed-shakir/static-snapshot/internal/core/httpclient"
	"github.com/mohammed-shakir/static-snapshot/internal/core/observability"
	"github.com/mohammed-shakir/static-snapshot/internal/core/server"
	"github.com/mohammed-shakir/static-snapshot/internal/core/snapshot"
	"github.com/mohammed-shakir/static-snapshot/internal/events"
	"github.com/mohammed-shakir/static-snapshot/internal/logger"
	"github.com/mohammed-shakir/static-snapshot/internal/metrics"
	"github.com/mohammed-shakir/static-snapshot/internal/ratelimit"
	"github.com/mohammed-shakir/static-snapshot/internal/ratelimit/redisstore"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "snapshot-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting snapshot proxy",
		"addr", cfg.Addr,
		"version", Version,
		"api_host", cfg.APIHost,
		"rate_gate", cfg.RateGate.Driver,
		"events", cfg.Events.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := map[string]health.Pinger{}
	var gate *ratelimit.Gate
	switch cfg.RateGate.Driver {
	case "memory":
		gate = ratelimit.NewGate(ratelimit.NewMemoryStore(cfg.RateGate.Size))
	case "redis":
		st, err := redisstore.New(ctx, cfg.RateGate.RedisAddr, cfg.RateGate.OpTimeout)
		if err != nil {
			appLog.Error("rate gate store unavailable", "addr", cfg.RateGate.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = st.Close() }()
		gate = ratelimit.NewGate(st)
		ready["redis"] = st
	}

	opts := []snapshot.Option{
		snapshot.WithAccessToken(cfg.AccessToken),
		snapshot.WithHost(cfg.APIHost),
		snapshot.WithHTTPClient(httpclient.NewOutbound(cfg.HTTPTimeout, httpclient.UserAgent(Version))),
		snapshot.WithLogger(appLog.With("component", "snapshot")),
		snapshot.WithGate(gate),
	}
	if cfg.OutboundRPS > 0 {
		opts = append(opts, snapshot.WithLimiter(rate.NewLimiter(rate.Limit(cfg.OutboundRPS), cfg.OutboundBurst)))
	}
	client, err := snapshot.New(ctx, opts...)
	if err != nil {
		appLog.Error("snapshot client setup failed", "err", err)
		return 1
	}
	defer client.Close()

	deps := server.Deps{Snapshots: client, Ready: ready}
	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Queue, appLog)
		if err != nil {
			appLog.Error("event publisher setup failed", "brokers", cfg.Events.Brokers, "err", err)
			return 1
		}
		defer func() { _ = pub.Close() }()
		deps.Events = pub
	}

	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New(metrics.BuildFromEnv(Version)).Handler(appLog)
		deps.MetricsPath = cfg.Metrics.Path
	}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
