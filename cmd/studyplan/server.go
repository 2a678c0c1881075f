package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/studyplan/observability"
)

const shutdownTimeout = 10 * time.Second

// listen serves h on addr until ctx ends, then drains in-flight requests.
func listen(ctx context.Context, name, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "server", name)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// serverObserver logs through slog and counts events in Prometheus. The
// Prometheus observer is also registered as "prometheus" for kernel
// configs to name.
func serverObserver() (observability.Observer, error) {
	prom, err := observability.NewPrometheusObserver("studyplan", prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	observability.RegisterObserver("prometheus", prom)
	return observability.NewMultiObserver(observability.NewSlogObserver(nil), prom), nil
}
