package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imamik/stackctl/internal/orchestration"
)

// ReapOptions configures the expiry reaper.
type ReapOptions struct {
	// Interval between sweeps. Zero uses the configured interval.
	Interval time.Duration
	// MetricsAddr serves /metrics while the reaper runs. Empty uses the
	// configured address; no server is started when both are empty.
	MetricsAddr string
	// Once runs a single sweep and exits.
	Once bool
}

// Reap destroys expired pull request environments, either once or on an
// interval until ctx is cancelled.
func Reap(ctx context.Context, g Globals, opts ReapOptions) error {
	rt, err := setup(ctx, g)
	if err != nil {
		return err
	}

	reaper := orchestration.NewReaperFor(rt.orchestrator,
		orchestration.WithConcurrency(rt.cfg.Reaper.Concurrency),
		orchestration.WithReaperObserver(rt.observer))

	if opts.Once {
		destroyed, err := reaper.Sweep(ctx)
		for _, env := range destroyed {
			fmt.Fprintf(stdout, "Destroyed %s\n", env)
		}
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		if len(destroyed) == 0 {
			fmt.Fprintln(stdout, "No expired environments")
		}
		return nil
	}

	interval := opts.Interval
	if interval == 0 {
		interval = rt.cfg.Reaper.Interval
	}
	addr := opts.MetricsAddr
	if addr == "" {
		addr = rt.cfg.MetricsAddr
	}

	if addr != "" {
		stop, err := serveMetrics(addr, rt.logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	rt.logger.Info("reaper started", slog.Duration("interval", interval))
	if err := reaper.Run(ctx, interval); err != nil {
		return err
	}
	rt.logger.Info("reaper stopped")
	return nil
}

// serveMetrics starts the /metrics endpoint and returns a function that
// shuts it down.
func serveMetrics(addr string, logger *slog.Logger) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", slog.String("addr", addr))
		errorCh <- srv.ListenAndServe()
	}()

	// Surface bind errors before the first sweep.
	select {
	case err := <-errorCh:
		return nil, fmt.Errorf("metrics server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
		}
	}, nil
}
