package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"soil-health-agent/agent"
	"soil-health-agent/config"
	"soil-health-agent/metrics"
	"soil-health-agent/tools"
)

func main() {
	cfg := config.Load()
	logger := newLogger(logOutput, cfg.LogLevel)
	slog.SetDefault(logger)

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	}

	registry := newToolRegistry(cfg, logger, m)

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "telegram" {
		if err := runTelegram(ctx, cfg, registry, logger, m); err != nil {
			logger.Error("telegram bot stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	model, err := agent.NewModel(ctx, cfg, logger, m)
	if err != nil {
		fmt.Fprintf(os.Stdout, "An error occurred: %v\n", err)
		return
	}
	soilAgent := agent.New(model, registry, agent.Options{Logger: logger, Metrics: m})
	runOnce(ctx, os.Stdout, soilAgent, locationFromArgs(args, cfg.Location))
}

// newToolRegistry registers the soil and weather tools.
func newToolRegistry(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.NewSoilTool(nil).AsTool())
	registry.Register(tools.NewWeatherTool(tools.WeatherConfig{
		APIKey:  cfg.OpenWeatherAPIKey,
		BaseURL: cfg.OpenWeatherURL,
		Logger:  logger,
		Metrics: m,
	}).AsTool())
	return registry
}

// runOnce analyses one location and prints the answer. Failures are printed,
// not returned, so the process exits cleanly.
func runOnce(ctx context.Context, out io.Writer, soilAgent *agent.Agent, location string) {
	result, err := soilAgent.Run(ctx, location)
	if err != nil {
		fmt.Fprintf(out, "An error occurred: %v\n", err)
		return
	}
	fmt.Fprintf(out, "\n--- Agent Response ---\n%s\n", result.Output)
}

// locationFromArgs joins the command-line words into a place name so that
// unquoted names like New Delhi work.
func locationFromArgs(args []string, fallback string) string {
	if location := strings.TrimSpace(strings.Join(args, " ")); location != "" {
		return location
	}
	return fallback
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "err", err)
	}
}
