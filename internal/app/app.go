package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
	"github.com/AEO3/sbom-compile-orderer/internal/fetch"
)

// detachGrace bounds how long Close waits for a detached fetch pool after
// cancelling it.
const detachGrace = 5 * time.Second

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	config  *Config
	outW    io.Writer
	logger  *slog.Logger
	logFile *os.File
	runID   string

	httpServer *http.Server
	ledger     *fetch.Ledger
	background *fetch.Handle
	grace      time.Duration
}

// NewApp is the constructor for the main application. Reports go to outW and
// logs go to logW and to the log file in the cache directory. When the log
// file cannot be opened the app logs to logW only.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	runID := uuid.NewString()

	logFile, fileErr := openLogFile(cfg.CacheDir)
	sink := logW
	if fileErr == nil {
		sink = io.MultiWriter(logW, logFile)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, sink).With("run_id", runID)
	if fileErr != nil {
		logger.Warn("App: Log file unavailable, logging to stderr only.", "error", fileErr)
	}
	logger.Debug("App: Logger configured.", "cache_dir", cfg.CacheDir)

	return &App{
		config:  cfg,
		outW:    outW,
		logger:  logger,
		logFile: logFile,
		runID:   runID,
		grace:   detachGrace,
	}
}

// RunID identifies this run in every log line.
func (a *App) RunID() string { return a.runID }

// Close stops a fetch pool left running by Run, then releases the ledger and
// the log file. The ledger stays open when the pool outlives the grace
// period, since its workers may still write to it.
func (a *App) Close() error {
	if a.background != nil {
		a.background.Cancel()
		if !a.background.Wait(a.grace) {
			a.logger.Warn("App: Background downloads did not stop in time, leaving the ledger open.",
				"done", a.background.Len(), "total", a.background.Total())
			a.ledger = nil
		}
		a.background = nil
	}

	var errs []error
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
		a.ledger = nil
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	return errors.Join(errs...)
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
