package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/joshuasalcedo-dev/fx/internal/util"
)

// Repository is the entry store adapter. It owns the SQLite connection and
// keeps the derived columns (content_hash, content_length) consistent with
// content on every write.
type Repository struct {
	db *bun.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one pooled connection also keeps in-memory
	// databases on a single handle.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	ctx := context.Background()

	models := []interface{}{
		(*ClipboardEntry)(nil),
	}

	for _, model := range models {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_clipboard_timestamp ON clipboard_entries(timestamp DESC)",
		"CREATE INDEX IF NOT EXISTS idx_clipboard_hash ON clipboard_entries(content_hash)",
		"CREATE INDEX IF NOT EXISTS idx_clipboard_pinned ON clipboard_entries(pinned)",
	}

	for _, idx := range indexes {
		if _, err := r.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// normalize recomputes the derived columns and fills defaults before a write.
func normalize(entry *ClipboardEntry) {
	entry.ContentHash = util.HashContent(entry.Content)
	entry.ContentLength = len(entry.Content)
	if entry.ContentType == "" {
		entry.ContentType = DefaultContentType
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
}

func (r *Repository) Insert(ctx context.Context, entry *ClipboardEntry) error {
	normalize(entry)

	if _, err := r.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert clipboard entry: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, entry *ClipboardEntry) error {
	normalize(entry)

	if _, err := r.db.NewUpdate().Model(entry).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("failed to update clipboard entry: %w", err)
	}
	return nil
}

// FindByID returns (nil, nil) when no entry with the given id exists.
func (r *Repository) FindByID(ctx context.Context, id int64) (*ClipboardEntry, error) {
	var entry ClipboardEntry
	err := r.db.NewSelect().
		Model(&entry).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry by ID: %w", err)
	}
	return &entry, nil
}

// FindLatestByContentSince is the duplicate probe: the newest entry whose
// content exactly equals the input and whose timestamp falls after since.
// Returns (nil, nil) when no candidate exists.
func (r *Repository) FindLatestByContentSince(ctx context.Context, content string, since time.Time) (*ClipboardEntry, error) {
	var entry ClipboardEntry
	err := r.db.NewSelect().
		Model(&entry).
		Where("content = ?", content).
		Where("timestamp > ?", since).
		Order("timestamp DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate candidate: %w", err)
	}
	return &entry, nil
}

// FindPage returns one page of entries sorted by timestamp descending,
// together with the total row count.
func (r *Repository) FindPage(ctx context.Context, page, size int) ([]*ClipboardEntry, int, error) {
	var entries []*ClipboardEntry

	total, err := r.db.NewSelect().
		Model(&entries).
		Order("timestamp DESC").
		Limit(size).
		Offset(page * size).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, total, nil
}

func (r *Repository) FindPinned(ctx context.Context) ([]*ClipboardEntry, error) {
	var entries []*ClipboardEntry

	err := r.db.NewSelect().
		Model(&entries).
		Where("pinned = TRUE").
		Order("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pinned entries: %w", err)
	}
	return entries, nil
}

// SearchByContent matches entries whose content contains term. SQLite LIKE is
// case-insensitive for ASCII, matching the store contract.
func (r *Repository) SearchByContent(ctx context.Context, term string, page, size int) ([]*ClipboardEntry, int, error) {
	var entries []*ClipboardEntry

	total, err := r.db.NewSelect().
		Model(&entries).
		Where("content LIKE ?", "%"+term+"%").
		Order("timestamp DESC").
		Limit(size).
		Offset(page * size).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search entries: %w", err)
	}
	return entries, total, nil
}

func (r *Repository) FindSince(ctx context.Context, since time.Time) ([]*ClipboardEntry, error) {
	var entries []*ClipboardEntry

	err := r.db.NewSelect().
		Model(&entries).
		Where("timestamp > ?", since).
		Order("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent entries: %w", err)
	}
	return entries, nil
}

// FindUnpinned lists unpinned entries newest first. Used by the exporter when
// pinned entries are excluded from the dump.
func (r *Repository) FindUnpinned(ctx context.Context) ([]*ClipboardEntry, error) {
	var entries []*ClipboardEntry

	err := r.db.NewSelect().
		Model(&entries).
		Where("pinned = FALSE").
		Order("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpinned entries: %w", err)
	}
	return entries, nil
}

func (r *Repository) FindAll(ctx context.Context) ([]*ClipboardEntry, error) {
	var entries []*ClipboardEntry

	err := r.db.NewSelect().
		Model(&entries).
		Order("timestamp DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// DeleteByID reports whether a row was actually removed.
func (r *Repository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*ClipboardEntry)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// DeleteAll removes every entry, or only the unpinned ones, and returns the
// number of rows removed.
func (r *Repository) DeleteAll(ctx context.Context, includePinned bool) (int64, error) {
	q := r.db.NewDelete().Model((*ClipboardEntry)(nil))
	if includePinned {
		q = q.Where("1=1")
	} else {
		q = q.Where("pinned = FALSE")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read clear result: %w", err)
	}
	return affected, nil
}

// DeleteOlderThan removes entries observed before threshold. Pinned entries
// survive unless includePinned is set.
func (r *Repository) DeleteOlderThan(ctx context.Context, threshold time.Time, includePinned bool) (int64, error) {
	q := r.db.NewDelete().
		Model((*ClipboardEntry)(nil)).
		Where("timestamp < ?", threshold)
	if !includePinned {
		q = q.Where("pinned = FALSE")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read expiry result: %w", err)
	}
	return affected, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.db.NewSelect().Model((*ClipboardEntry)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return int64(n), nil
}

func (r *Repository) CountPinned(ctx context.Context) (int64, error) {
	n, err := r.db.NewSelect().
		Model((*ClipboardEntry)(nil)).
		Where("pinned = TRUE").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pinned entries: %w", err)
	}
	return int64(n), nil
}

// GetStats computes a live snapshot from the table. Timestamps are zero when
// the table is empty.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	pinned, err := r.CountPinned(ctx)
	if err != nil {
		return nil, err
	}

	// Aggregate expressions carry no column type, so the driver hands the
	// stored TEXT through as-is. bun parses string and NULL sources into a
	// time.Time; NULL (empty table) leaves the zero value.
	var oldest, newest time.Time
	err = r.db.NewSelect().
		Model((*ClipboardEntry)(nil)).
		ColumnExpr("MIN(timestamp)").
		Scan(ctx, &oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to read oldest timestamp: %w", err)
	}
	err = r.db.NewSelect().
		Model((*ClipboardEntry)(nil)).
		ColumnExpr("MAX(timestamp)").
		Scan(ctx, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to read newest timestamp: %w", err)
	}

	return &Stats{
		TotalEntries:    total,
		PinnedEntries:   pinned,
		UnpinnedEntries: total - pinned,
		OldestEntry:     oldest,
		NewestEntry:     newest,
	}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
