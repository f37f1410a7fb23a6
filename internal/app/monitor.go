package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
)

// healthHandler logs the request and answers OK.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Monitor: Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// monitorRouter serves /health and the Prometheus /metrics endpoint.
func (a *App) monitorRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", a.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// startMonitoringServer runs the monitoring server in the background. A port
// of zero disables it.
func (a *App) startMonitoringServer(ctx context.Context, port int) {
	logger := ctxlog.FromContext(ctx)
	if port <= 0 {
		logger.Debug("Monitor: Server disabled.")
		return
	}

	addr := fmt.Sprintf(":%d", port)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.monitorRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := a.httpServer

	go func() {
		logger.Info("Monitor: Server starting.", "address", fmt.Sprintf("http://localhost%s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Monitor: Server failed unexpectedly.", "error", err)
		}
	}()
}

func (a *App) stopMonitoringServer(ctx context.Context) {
	if a.httpServer == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Monitor: Server shutdown failed.", "error", err)
	} else {
		logger.Debug("Monitor: Server shut down gracefully.")
	}
	a.httpServer = nil
}
