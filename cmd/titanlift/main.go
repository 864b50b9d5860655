package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"tailscale.com/tsnet"

	"github.com/meltforce/titanlift/internal/app"
	"github.com/meltforce/titanlift/internal/coach"
	"github.com/meltforce/titanlift/internal/config"
	"github.com/meltforce/titanlift/internal/logging"
	"github.com/meltforce/titanlift/internal/metrics"
	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (empty for defaults and env only)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logging.New(cfg.Log, os.Stdout)
	defer logCloser.Close()
	log.Info("TitanLift starting", "version", Version, "logs", logging.Describe(cfg.Log))

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Metrics
	var m *metrics.Manager
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewManager("titanlift", "server", reg)
	}

	hooks := app.Hooks{}
	if m != nil {
		hooks.OnDraftWrite = m.DraftWritten
		hooks.OnFinish = func(models.WorkoutSession) { m.CounterSessionsFinish.Inc() }
	}

	a, err := app.Open(ctx, cfg, log, hooks)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error("closing store", "error", err)
		}
	}()

	// Coach
	model, err := newModel(cfg.Coach)
	if err != nil {
		return err
	}
	coachOpts := coach.Options{Timeout: cfg.Coach.Timeout, CacheTTL: cfg.Coach.CacheTTL}
	if m != nil {
		coachOpts.OnFallback = m.CoachFallback
	}
	c := coach.New(model, log, coachOpts)
	log.Info("coach configured", "provider", cfg.Coach.Provider, "enabled", c.Enabled())

	opts := server.Options{APIKey: cfg.Auth.APIKey, Metrics: m}
	if reg != nil {
		opts.Gatherer = reg
	}
	srv := server.New(a.Service, c, log, opts)

	// Listener: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	return nil
}

// newModel builds the generative model for the configured provider. The
// none provider yields nil, which the coach answers with fallbacks.
func newModel(cfg config.CoachConfig) (coach.Model, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return coach.NewGemini(cfg.Endpoint, cfg.APIKey, cfg.Model), nil
	case config.ProviderAzure:
		return coach.NewAzure(cfg.Endpoint, cfg.APIKey, cfg.Deployment)
	default:
		return nil, nil
	}
}
