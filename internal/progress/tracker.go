// Package progress tracks how far a viewer has watched each kata video.
//
// A kata moves from unseen (no record) to in progress on its first playback
// tick and to completed once 90% has been watched. Completed is absorbing:
// later ticks update position and percentage but never clear the flag.
package progress

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"math"
	"sync"
	"time"

	"github.com/wko-katas/katas-engine/internal/models"
)

var ErrInvalidTick = errors.New("playback position and duration must be finite and non-negative")

// resumeMinSeconds is the position below which playback restarts from zero
const resumeMinSeconds = 10.0

// PersistFunc stores the full progress map. It is called after every mutation
// while the tracker lock is held, so writes happen in update order.
type PersistFunc func(ctx context.Context, progress map[string]models.VideoProgress) error

// Tracker holds the progress records of one viewer
type Tracker struct {
	mu      sync.Mutex
	records map[string]models.VideoProgress
	persist PersistFunc
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the time source used for lastWatched
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger used for persistence failures
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a tracker seeded with previously persisted records.
// persist may be nil.
func NewTracker(initial map[string]models.VideoProgress, persist PersistFunc, opts ...Option) *Tracker {
	t := &Tracker{
		records: make(map[string]models.VideoProgress, len(initial)),
		persist: persist,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	for id, p := range initial {
		p.KataID = id
		t.records[id] = p
	}

	return t
}

// Update records a playback tick. The percentage is currentTime/duration*100
// (0 when duration is not positive) and completion is sticky.
// Ticks past the end of the video are clamped to 100%.
func (t *Tracker) Update(ctx context.Context, kataID string, currentTime, duration float64) (models.VideoProgress, error) {
	if !validSeconds(currentTime) || !validSeconds(duration) {
		return models.VideoProgress{}, ErrInvalidTick
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pct := 0.0
	if duration > 0 {
		pct = math.Min(currentTime/duration*100, 100)
	}

	prev, seen := t.records[kataID]
	p := models.VideoProgress{
		KataID:            kataID,
		CurrentTime:       currentTime,
		Duration:          duration,
		WatchedPercentage: pct,
		LastWatched:       t.now().UTC().Format(time.RFC3339Nano),
		Completed:         (seen && prev.Completed) || pct >= models.CompletionThreshold,
	}
	t.records[kataID] = p

	if !prev.Completed && p.Completed {
		t.logger.Info("kata completed", "kata_id", kataID, "watched_percentage", pct)
	}

	t.save(ctx)
	return p, nil
}

// MarkCompleted forces an existing record to completed at 100%. It returns
// false and changes nothing when the kata has no record yet.
func (t *Tracker) MarkCompleted(ctx context.Context, kataID string) (models.VideoProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.records[kataID]
	if !ok {
		return models.VideoProgress{}, false
	}

	p.Completed = true
	p.WatchedPercentage = 100
	t.records[kataID] = p

	t.save(ctx)
	return p, true
}

// Get returns the progress record of a kata, or nil when it was never played
func (t *Tracker) Get(kataID string) *models.VideoProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.records[kataID]
	if !ok {
		return nil
	}
	return &p
}

// State returns the lifecycle state of a kata
func (t *Tracker) State(kataID string) models.ProgressState {
	return models.StateOf(t.Get(kataID))
}

// Snapshot returns a copy of all records
func (t *Tracker) Snapshot() map[string]models.VideoProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	return maps.Clone(t.records)
}

// CompletedCount returns how many katas are completed
func (t *Tracker) CompletedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, p := range t.records {
		if p.Completed {
			n++
		}
	}
	return n
}

// save must be called with t.mu held. Failures are logged and swallowed.
func (t *Tracker) save(ctx context.Context) {
	if t.persist == nil {
		return
	}
	if err := t.persist(ctx, maps.Clone(t.records)); err != nil {
		t.logger.Warn("failed to persist video progress", "error", err, "records", len(t.records))
	}
}

// ResumePosition returns where playback should continue: the stored position
// when it is past the first seconds and the kata is not completed, else 0.
func ResumePosition(p *models.VideoProgress) float64 {
	if p == nil || p.Completed || p.CurrentTime <= resumeMinSeconds {
		return 0
	}
	return p.CurrentTime
}

func validSeconds(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
