// Command netifd reconciles a desired network configuration against live
// kernel state: addresses, routes, DNS, tunnels, bridges, and VLANs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/netifd-go/netifd/internal/config"
	"github.com/netifd-go/netifd/internal/metrics"
	"github.com/netifd-go/netifd/internal/netifd"
)

func main() {
	cfg := config.Default()

	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	exporter, err := prometheus.New()
	if err != nil {
		logger.Error("failed to create prometheus exporter", "error", err)
		os.Exit(1)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)

	m, err := metrics.New(logger)
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}

	tracer := otel.Tracer("netifd")

	sys, err := netifd.New(logger, tracer, m, cfg.ResolvConfPath, cfg.ResolvRewriteEvery)
	if err != nil {
		logger.Error("failed to initialize netifd", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := sys.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("netifd starting", "resolv_conf_path", cfg.ResolvConfPath)
	sys.Loop(ctx)
	logger.Info("netifd stopped")
}
