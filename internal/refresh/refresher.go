package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loader rebuilds the catalog
type Loader interface {
	Load(ctx context.Context) error
}

// Refresher reloads the catalog periodically
type Refresher struct {
	loader   Loader
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	lastRun  time.Time
	lastErr  error
	runCount int
}

// Status describes the outcome of the most recent load
type Status struct {
	LastRun time.Time `json:"lastRun"`
	Error   string    `json:"error,omitempty"`
	Runs    int       `json:"runs"`
}

// NewRefresher creates a new refresh worker
func NewRefresher(loader Loader, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Refresher{
		loader:   loader,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the refresh worker in a goroutine
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

// run is the main loop for the refresh worker
func (r *Refresher) run(ctx context.Context) {
	r.logger.Info("catalog refresh worker started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start unless the caller already loaded once
	if r.Status().Runs == 0 {
		r.Refresh(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("catalog refresh worker stopped")
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh runs one load and records its outcome. Concurrent calls are serialized.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("running catalog refresh")

	err := r.loader.Load(ctx)
	r.lastRun = time.Now().UTC()
	r.lastErr = err
	r.runCount++

	if err != nil {
		r.logger.Error("catalog refresh failed", "error", err)
		return err
	}

	r.logger.Debug("catalog refresh finished")
	return nil
}

// Status returns the outcome of the last refresh
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{LastRun: r.lastRun, Runs: r.runCount}
	if r.lastErr != nil {
		s.Error = r.lastErr.Error()
	}
	return s
}
