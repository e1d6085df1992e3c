package clipboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuasalcedo-dev/fx/internal/database"
	"github.com/joshuasalcedo-dev/fx/internal/export"
)

// recordingNotifier counts every change event delivered by the service.
type recordingNotifier struct {
	mu      sync.Mutex
	created []int64
	updated []int64
	deleted []int64
	cleared []bool
}

func (n *recordingNotifier) EntryCreated(entry *database.ClipboardEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, entry.ID)
}

func (n *recordingNotifier) EntryUpdated(entry *database.ClipboardEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, entry.ID)
}

func (n *recordingNotifier) EntryDeleted(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, id)
}

func (n *recordingNotifier) Cleared(includePinned bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleared = append(n.cleared, includePinned)
}

func (n *recordingNotifier) totalEvents() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created) + len(n.updated) + len(n.deleted) + len(n.cleared)
}

// spyStore counts store calls on top of the real repository.
type spyStore struct {
	Store
	mu          sync.Mutex
	searchCalls int
	writeCalls  int
}

func (s *spyStore) SearchByContent(ctx context.Context, term string, page, size int) ([]*database.ClipboardEntry, int, error) {
	s.mu.Lock()
	s.searchCalls++
	s.mu.Unlock()
	return s.Store.SearchByContent(ctx, term, page, size)
}

func (s *spyStore) Insert(ctx context.Context, entry *database.ClipboardEntry) error {
	s.mu.Lock()
	s.writeCalls++
	s.mu.Unlock()
	return s.Store.Insert(ctx, entry)
}

func (s *spyStore) Update(ctx context.Context, entry *database.ClipboardEntry) error {
	s.mu.Lock()
	s.writeCalls++
	s.mu.Unlock()
	return s.Store.Update(ctx, entry)
}

func setupService(t *testing.T) (*Service, *spyStore, *recordingNotifier) {
	t.Helper()
	repo, err := database.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	store := &spyStore{Store: repo}
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, DefaultDedupWindow, zerolog.Nop())
	return svc, store, notifier
}

func TestSaveCreatesEntry(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	entry, err := svc.Save(ctx, "hello")
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.Pinned)
	assert.Equal(t, "hello", entry.Content)

	assert.Equal(t, []int64{entry.ID}, notifier.created)
	assert.Empty(t, notifier.updated)
	assert.Equal(t, 1, notifier.totalEvents(), "exactly one event per save")
}

func TestSaveCoalescesDuplicateWithinWindow(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	t0 := time.Now()
	svc.now = func() time.Time { return t0 }

	first, err := svc.Save(ctx, "dup")
	require.NoError(t, err)

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	second, err := svc.Save(ctx, "dup")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Timestamp.After(first.Timestamp))
	assert.Equal(t, []int64{first.ID}, notifier.created)
	assert.Equal(t, []int64{first.ID}, notifier.updated)
}

func TestSaveOutsideWindowCreatesNewEntry(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	t0 := time.Now()
	svc.now = func() time.Time { return t0 }
	first, err := svc.Save(ctx, "dup")
	require.NoError(t, err)

	svc.now = func() time.Time { return t0.Add(25 * time.Hour) }
	second, err := svc.Save(ctx, "dup")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSaveRejectsBlankContent(t *testing.T) {
	svc, store, notifier := setupService(t)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.Save(ctx, content)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrCodeInvalidInput))
	}

	assert.Equal(t, 0, store.writeCalls, "blank content must not touch the store")
	assert.Equal(t, 0, notifier.totalEvents())
}

func TestConcurrentSavesOfIdenticalContent(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Save(ctx, "raced")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalEntries, "racing identical saves must not double-create")
}

func TestSetPinnedRoundTrip(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	entry, err := svc.Save(ctx, "pin me")
	require.NoError(t, err)

	pinned, err := svc.Pin(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	unpinned, err := svc.Unpin(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, unpinned.Pinned)

	assert.Len(t, notifier.updated, 2)
}

func TestSetPinnedUnchangedValueStillWritesAndNotifies(t *testing.T) {
	svc, store, notifier := setupService(t)
	ctx := context.Background()

	entry, err := svc.Save(ctx, "idempotent")
	require.NoError(t, err)
	writesBefore := store.writeCalls
	eventsBefore := notifier.totalEvents()

	_, err = svc.SetPinned(ctx, entry.ID, false)
	require.NoError(t, err)

	assert.Equal(t, writesBefore+1, store.writeCalls)
	assert.Equal(t, eventsBefore+1, notifier.totalEvents())
}

func TestSetPinnedNotFound(t *testing.T) {
	svc, _, notifier := setupService(t)

	_, err := svc.SetPinned(context.Background(), 9999, true)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNotFound))
	assert.Equal(t, 0, notifier.totalEvents())
}

func TestDeleteByID(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	entry, err := svc.Save(ctx, "to delete")
	require.NoError(t, err)

	deleted, err := svc.DeleteByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []int64{entry.ID}, notifier.deleted)

	deleted, err = svc.DeleteByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, notifier.deleted, 1, "missing id emits no event")
}

func TestDeleteAllSparesPinned(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		_, err := svc.Save(ctx, content)
		require.NoError(t, err)
	}
	kept, err := svc.Save(ctx, "keep")
	require.NoError(t, err)
	_, err = svc.Pin(ctx, kept.ID)
	require.NoError(t, err)

	deleted, err := svc.DeleteAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, []bool{false}, notifier.cleared)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalEntries)
	assert.Equal(t, int64(1), stats.PinnedEntries)
}

func TestDeleteOlderThanIsSilentAndSparesPinned(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	t0 := time.Now()
	svc.now = func() time.Time { return t0.Add(-200 * time.Hour) }
	oldEntry, err := svc.Save(ctx, "old")
	require.NoError(t, err)
	oldPinned, err := svc.Save(ctx, "old pinned")
	require.NoError(t, err)

	svc.now = func() time.Time { return t0 }
	_, err = svc.Pin(ctx, oldPinned.ID)
	require.NoError(t, err)

	eventsBefore := notifier.totalEvents()

	deleted, err := svc.DeleteOlderThan(ctx, 168, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, eventsBefore, notifier.totalEvents(), "bulk expiry is silent")

	gone, err := svc.FindByID(ctx, oldEntry.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	stillThere, err := svc.FindByID(ctx, oldPinned.ID)
	require.NoError(t, err)
	assert.NotNil(t, stillThere)
}

func TestSearchBlankTermSkipsStore(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "searchable")
	require.NoError(t, err)

	page, err := svc.SearchByContent(ctx, "   ", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, 0, store.searchCalls, "blank term must not reach the store")

	page, err = svc.SearchByContent(ctx, "search", 0, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, store.searchCalls)
}

func TestFindAllPagination(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	t0 := time.Now()
	for i := 0; i < 5; i++ {
		ts := t0.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return ts }
		_, err := svc.Save(ctx, string(rune('a'+i)))
		require.NoError(t, err)
	}

	page, err := svc.FindAll(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, "e", page.Items[0].Content, "newest first")
}

func TestFindRecent(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	t0 := time.Now()
	svc.now = func() time.Time { return t0.Add(-30 * time.Hour) }
	_, err := svc.Save(ctx, "stale")
	require.NoError(t, err)

	svc.now = func() time.Time { return t0 }
	fresh, err := svc.Save(ctx, "fresh")
	require.NoError(t, err)

	recent, err := svc.FindRecent(ctx, 24)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, fresh.ID, recent[0].ID)
}

func TestStatsScenario(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	var pinnedIDs []int64
	for i := 0; i < 7; i++ {
		entry, err := svc.Save(ctx, string(rune('a'+i)))
		require.NoError(t, err)
		if i < 2 {
			pinnedIDs = append(pinnedIDs, entry.ID)
		}
	}
	for _, id := range pinnedIDs {
		_, err := svc.Pin(ctx, id)
		require.NoError(t, err)
	}

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.TotalEntries)
	assert.Equal(t, int64(2), stats.PinnedEntries)
	assert.Equal(t, int64(5), stats.UnpinnedEntries)
	assert.False(t, stats.OldestEntry.IsZero())
	assert.False(t, stats.NewestEntry.After(time.Now().Add(time.Second)))
}

// Full lifecycle: dedup refresh, window expiry split, pin protection.
func TestEntryLifecycleScenario(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	t0 := time.Now()
	svc.now = func() time.Time { return t0 }
	e1, err := svc.Save(ctx, "A")
	require.NoError(t, err)

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	refreshed, err := svc.Save(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, e1.ID, refreshed.ID)
	assert.WithinDuration(t, t0.Add(time.Hour), refreshed.Timestamp, time.Second)

	svc.now = func() time.Time { return t0.Add(25 * time.Hour) }
	e2, err := svc.Save(ctx, "A")
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID, e2.ID)

	_, err = svc.Pin(ctx, e1.ID)
	require.NoError(t, err)

	deleted, err := svc.DeleteAll(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := svc.FindByID(ctx, e1.ID)
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assert.True(t, remaining.Pinned)

	gone, err := svc.FindByID(ctx, e2.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestExport(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "exported")
	require.NoError(t, err)
	pinned, err := svc.Save(ctx, "pinned entry")
	require.NoError(t, err)
	_, err = svc.Pin(ctx, pinned.ID)
	require.NoError(t, err)

	all, err := svc.Export(ctx, export.FormatJSON, true)
	require.NoError(t, err)
	assert.Contains(t, all, "exported")
	assert.Contains(t, all, "pinned entry")

	unpinnedOnly, err := svc.Export(ctx, export.FormatCSV, false)
	require.NoError(t, err)
	assert.Contains(t, unpinnedOnly, "exported")
	assert.NotContains(t, unpinnedOnly, "pinned entry")

	_, err = svc.Export(ctx, export.Format("xml"), true)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInvalidInput))
}
