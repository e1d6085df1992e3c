// Package clipboard implements the clipboard history policy layer: duplicate
// coalescing within a rolling window, pin-based retention, scheduled expiry
// and change notification fan-out. All authoritative state lives in the store;
// the service re-reads on every query.
package clipboard

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshuasalcedo-dev/fx/internal/database"
	"github.com/joshuasalcedo-dev/fx/internal/export"
)

const (
	// DefaultDedupWindow is the look-back used to decide whether new content
	// refreshes an existing entry instead of creating one.
	DefaultDedupWindow = 24 * time.Hour

	// lockStripes bounds the per-content lock table. Saves for identical
	// content serialize on the same stripe; distinct contents almost always
	// run concurrently.
	lockStripes = 64

	previewLength = 50
)

// Store is the persistence surface the service needs. *database.Repository
// satisfies it; tests may wrap it.
type Store interface {
	Insert(ctx context.Context, entry *database.ClipboardEntry) error
	Update(ctx context.Context, entry *database.ClipboardEntry) error
	FindByID(ctx context.Context, id int64) (*database.ClipboardEntry, error)
	FindLatestByContentSince(ctx context.Context, content string, since time.Time) (*database.ClipboardEntry, error)
	FindPage(ctx context.Context, page, size int) ([]*database.ClipboardEntry, int, error)
	FindPinned(ctx context.Context) ([]*database.ClipboardEntry, error)
	SearchByContent(ctx context.Context, term string, page, size int) ([]*database.ClipboardEntry, int, error)
	FindSince(ctx context.Context, since time.Time) ([]*database.ClipboardEntry, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	DeleteAll(ctx context.Context, includePinned bool) (int64, error)
	DeleteOlderThan(ctx context.Context, threshold time.Time, includePinned bool) (int64, error)
	FindAll(ctx context.Context) ([]*database.ClipboardEntry, error)
	FindUnpinned(ctx context.Context) ([]*database.ClipboardEntry, error)
	GetStats(ctx context.Context) (*database.Stats, error)
}

// ChangeNotifier receives exactly one call per mutating operation, except
// age-based expiry which is silent.
type ChangeNotifier interface {
	EntryCreated(entry *database.ClipboardEntry)
	EntryUpdated(entry *database.ClipboardEntry)
	EntryDeleted(id int64)
	Cleared(includePinned bool)
}

// Page is one slice of the history plus paging metadata.
type Page struct {
	Items      []*database.ClipboardEntry `json:"items"`
	Page       int                        `json:"page"`
	Size       int                        `json:"size"`
	TotalItems int                        `json:"totalItems"`
	TotalPages int                        `json:"totalPages"`
}

func emptyPage(page, size int) *Page {
	return &Page{Items: []*database.ClipboardEntry{}, Page: page, Size: size}
}

// Service is the retention/dedup engine.
type Service struct {
	store    Store
	notifier ChangeNotifier
	window   time.Duration
	log      zerolog.Logger

	locks [lockStripes]sync.Mutex

	now func() time.Time
}

func NewService(store Store, notifier ChangeNotifier, window time.Duration, log zerolog.Logger) *Service {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Service{
		store:    store,
		notifier: notifier,
		window:   window,
		log:      log.With().Str("component", "clipboard").Logger(),
		now:      time.Now,
	}
}

// Save records one raw clipboard snapshot. When an entry with identical
// content was observed within the dedup window its timestamp is refreshed;
// otherwise a new entry is created. Either way exactly one change event is
// emitted.
func (s *Service) Save(ctx context.Context, content string) (*database.ClipboardEntry, error) {
	if strings.TrimSpace(content) == "" {
		s.log.Warn().Msg("rejected blank clipboard content")
		return nil, NewError(ErrCodeInvalidInput, "clipboard content cannot be empty")
	}

	// Serialize lookup-then-write for identical content so two racing saves
	// cannot both miss the duplicate probe and double-create.
	lock := s.lockFor(content)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	existing, err := s.store.FindLatestByContentSince(ctx, content, now.Add(-s.window))
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "duplicate lookup failed", err)
	}

	if existing != nil {
		existing.Timestamp = now
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, WrapError(ErrCodeStorage, "failed to refresh duplicate entry", err)
		}
		s.log.Debug().Int64("id", existing.ID).Msg("duplicate content, timestamp refreshed")
		s.notifier.EntryUpdated(existing)
		return existing, nil
	}

	entry := &database.ClipboardEntry{
		Content:   content,
		Timestamp: now,
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to save clipboard entry", err)
	}

	s.log.Info().
		Int64("id", entry.ID).
		Int("length", entry.ContentLength).
		Str("preview", preview(content)).
		Msg("new clipboard entry saved")
	s.notifier.EntryCreated(entry)
	return entry, nil
}

// SetPinned updates the pin flag. The write and the update event happen even
// when the value is unchanged.
func (s *Service) SetPinned(ctx context.Context, id int64, pinned bool) (*database.ClipboardEntry, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to load entry", err)
	}
	if entry == nil {
		return nil, NewError(ErrCodeNotFound, "clipboard entry not found")
	}

	entry.Pinned = pinned
	if err := s.store.Update(ctx, entry); err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to update pin flag", err)
	}

	s.log.Info().Int64("id", id).Bool("pinned", pinned).Msg("pin flag updated")
	s.notifier.EntryUpdated(entry)
	return entry, nil
}

// Pin and Unpin are conveniences over SetPinned.
func (s *Service) Pin(ctx context.Context, id int64) (*database.ClipboardEntry, error) {
	return s.SetPinned(ctx, id, true)
}

func (s *Service) Unpin(ctx context.Context, id int64) (*database.ClipboardEntry, error) {
	return s.SetPinned(ctx, id, false)
}

func (s *Service) FindByID(ctx context.Context, id int64) (*database.ClipboardEntry, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to load entry", err)
	}
	return entry, nil
}

// DeleteByID reports false when the id does not exist; no event is emitted in
// that case.
func (s *Service) DeleteByID(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return false, WrapError(ErrCodeStorage, "failed to delete entry", err)
	}
	if !deleted {
		return false, nil
	}

	s.log.Info().Int64("id", id).Msg("entry deleted")
	s.notifier.EntryDeleted(id)
	return true, nil
}

// DeleteAll clears the history. Pinned entries survive unless includePinned
// is set. Returns the number of rows removed.
func (s *Service) DeleteAll(ctx context.Context, includePinned bool) (int64, error) {
	count, err := s.store.DeleteAll(ctx, includePinned)
	if err != nil {
		return 0, WrapError(ErrCodeStorage, "failed to clear entries", err)
	}

	s.log.Info().Int64("deleted", count).Bool("includePinned", includePinned).Msg("history cleared")
	s.notifier.Cleared(includePinned)
	return count, nil
}

// DeleteOlderThan removes entries last observed more than hours ago. Bulk
// background expiry is silent: no change event is emitted.
func (s *Service) DeleteOlderThan(ctx context.Context, hours int, includePinned bool) (int64, error) {
	threshold := s.now().Add(-time.Duration(hours) * time.Hour)

	count, err := s.store.DeleteOlderThan(ctx, threshold, includePinned)
	if err != nil {
		return 0, WrapError(ErrCodeStorage, "failed to expire old entries", err)
	}

	if count > 0 {
		s.log.Info().Int64("deleted", count).Int("hours", hours).Msg("expired old entries")
	}
	return count, nil
}

// FindAll returns one page of the history sorted by timestamp descending.
func (s *Service) FindAll(ctx context.Context, page, size int) (*Page, error) {
	items, total, err := s.store.FindPage(ctx, page, size)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to list entries", err)
	}
	return newPage(items, page, size, total), nil
}

func (s *Service) FindAllPinned(ctx context.Context) ([]*database.ClipboardEntry, error) {
	pinned, err := s.store.FindPinned(ctx)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to list pinned entries", err)
	}
	return pinned, nil
}

// SearchByContent matches entries containing term, case-insensitively. A
// blank term yields an empty page without touching the store; a full scan is
// never the answer to an empty search box.
func (s *Service) SearchByContent(ctx context.Context, term string, page, size int) (*Page, error) {
	if strings.TrimSpace(term) == "" {
		return emptyPage(page, size), nil
	}

	items, total, err := s.store.SearchByContent(ctx, term, page, size)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to search entries", err)
	}
	return newPage(items, page, size, total), nil
}

func (s *Service) FindRecent(ctx context.Context, hours int) ([]*database.ClipboardEntry, error) {
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	entries, err := s.store.FindSince(ctx, since)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to list recent entries", err)
	}
	return entries, nil
}

// Export renders the history in the given format. Pinned entries are
// excluded from the dump unless includePinned is set.
func (s *Service) Export(ctx context.Context, format export.Format, includePinned bool) (string, error) {
	var (
		entries []*database.ClipboardEntry
		err     error
	)
	if includePinned {
		entries, err = s.store.FindAll(ctx)
	} else {
		entries, err = s.store.FindUnpinned(ctx)
	}
	if err != nil {
		return "", WrapError(ErrCodeStorage, "failed to load entries for export", err)
	}

	rendered, err := export.Render(format, entries)
	if err != nil {
		return "", NewError(ErrCodeInvalidInput, err.Error())
	}
	return rendered, nil
}

func (s *Service) GetStats(ctx context.Context) (*database.Stats, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, WrapError(ErrCodeStorage, "failed to compute stats", err)
	}
	return stats, nil
}

func newPage(items []*database.ClipboardEntry, page, size, total int) *Page {
	if items == nil {
		items = []*database.ClipboardEntry{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	return &Page{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

func (s *Service) lockFor(content string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(content))
	return &s.locks[h.Sum32()%lockStripes]
}

func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	return text[:previewLength] + "..."
}
