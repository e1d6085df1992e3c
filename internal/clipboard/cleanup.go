package clipboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultRetentionHours matches the scheduled policy: unpinned entries
	// older than seven days are expired.
	DefaultRetentionHours = 7 * 24

	DefaultCleanupDelay    = 1 * time.Hour
	DefaultCleanupInterval = 24 * time.Hour
)

// Expirer is the slice of the service the cleanup worker uses.
type Expirer interface {
	DeleteOlderThan(ctx context.Context, hours int, includePinned bool) (int64, error)
}

// CleanupWorker runs age-based expiry on a fixed schedule, decoupled from
// request handling. A failed run is logged and the schedule continues.
type CleanupWorker struct {
	service        Expirer
	initialDelay   time.Duration
	interval       time.Duration
	retentionHours int
	log            zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewCleanupWorker(service Expirer, initialDelay, interval time.Duration, retentionHours int, log zerolog.Logger) *CleanupWorker {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if retentionHours <= 0 {
		retentionHours = DefaultRetentionHours
	}
	return &CleanupWorker{
		service:        service,
		initialDelay:   initialDelay,
		interval:       interval,
		retentionHours: retentionHours,
		log:            log.With().Str("component", "cleanup").Logger(),
	}
}

// Start launches the schedule: one run after the initial delay, then one per
// interval. Starting twice is a no-op.
func (w *CleanupWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	w.log.Info().
		Dur("initialDelay", w.initialDelay).
		Dur("interval", w.interval).
		Int("retentionHours", w.retentionHours).
		Msg("cleanup schedule started")

	go w.run(loopCtx)
}

// Stop cancels the schedule and waits for an in-flight run to return.
func (w *CleanupWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.log.Info().Msg("cleanup schedule stopped")
}

func (w *CleanupWorker) run(ctx context.Context) {
	defer close(w.done)

	delay := time.NewTimer(w.initialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	deleted, err := w.service.DeleteOlderThan(ctx, w.retentionHours, false)
	if err != nil {
		w.log.Error().Err(err).Msg("cleanup run failed")
		return
	}
	if deleted > 0 {
		w.log.Info().Int64("deleted", deleted).Msg("cleanup removed expired entries")
	}
}
