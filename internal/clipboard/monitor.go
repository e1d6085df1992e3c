package clipboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	osclipboard "golang.design/x/clipboard"

	"github.com/joshuasalcedo-dev/fx/internal/util"
)

// Monitor polls the OS clipboard and feeds raw text snapshots straight into
// the service. It performs change detection only (same snapshot is not
// re-delivered); duplicate coalescing is entirely the service's job.
type Monitor struct {
	service  *Service
	interval time.Duration
	maxSize  int
	log      zerolog.Logger

	mu       sync.Mutex
	lastHash string
	running  bool
	cancel   context.CancelFunc

	read func() []byte
}

func NewMonitor(service *Service, interval time.Duration, maxSize int, log zerolog.Logger) *Monitor {
	return &Monitor{
		service:  service,
		interval: interval,
		maxSize:  maxSize,
		log:      log.With().Str("component", "monitor").Logger(),
		read:     func() []byte { return osclipboard.Read(osclipboard.FmtText) },
	}
}

// Start initializes the OS clipboard and begins polling. Starting an already
// running monitor is an error.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("monitor is already running")
	}

	if err := osclipboard.Init(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.log.Info().Dur("interval", m.interval).Msg("clipboard monitor started")

	go m.monitorLoop(loopCtx)

	return nil
}

// Stop halts polling. Safe to call when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.cancel()
	m.running = false
	m.log.Info().Msg("clipboard monitor stopped")
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkClipboard(ctx)
		}
	}
}

func (m *Monitor) checkClipboard(ctx context.Context) {
	data := m.read()
	if len(data) == 0 {
		return
	}

	if m.maxSize > 0 && len(data) > m.maxSize {
		m.log.Debug().Int("size", len(data)).Int("max", m.maxSize).Msg("clipboard content too large, skipped")
		return
	}

	content := string(data)
	hash := util.HashContent(content)

	m.mu.Lock()
	unchanged := hash == m.lastHash
	m.mu.Unlock()
	if unchanged {
		return
	}

	if _, err := m.service.Save(ctx, content); err != nil {
		if !IsCode(err, ErrCodeInvalidInput) {
			// Leave lastHash untouched so the next poll retries this snapshot.
			m.log.Error().Err(err).Msg("failed to save clipboard snapshot")
			return
		}
	}

	m.mu.Lock()
	m.lastHash = hash
	m.mu.Unlock()
}

// WriteToClipboard puts a stored entry's content back on the OS clipboard and
// marks it as seen so the next poll does not re-capture it.
func (m *Monitor) WriteToClipboard(ctx context.Context, id int64) error {
	entry, err := m.service.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return NewError(ErrCodeNotFound, "clipboard entry not found")
	}

	osclipboard.Write(osclipboard.FmtText, []byte(entry.Content))

	m.mu.Lock()
	m.lastHash = entry.ContentHash
	m.mu.Unlock()

	m.log.Debug().Int64("id", id).Msg("entry copied back to clipboard")
	return nil
}
