package database

import (
	"time"

	"github.com/uptrace/bun"
)

// DefaultContentType is applied to entries that were not classified further.
const DefaultContentType = "text/plain"

type ClipboardEntry struct {
	bun.BaseModel `bun:"table:clipboard_entries"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Content       string    `bun:"content,notnull" json:"content"`
	Timestamp     time.Time `bun:"timestamp,notnull" json:"timestamp"`
	Pinned        bool      `bun:"pinned,default:false" json:"pinned"`
	ContentHash   string    `bun:"content_hash" json:"contentHash"`
	ContentType   string    `bun:"content_type,default:'text/plain'" json:"contentType"`
	ContentLength int       `bun:"content_length" json:"contentLength"`
}

// Stats is a live snapshot of the history table, computed per call.
type Stats struct {
	TotalEntries    int64     `json:"totalEntries"`
	PinnedEntries   int64     `json:"pinnedEntries"`
	UnpinnedEntries int64     `json:"unpinnedEntries"`
	OldestEntry     time.Time `json:"oldestEntry"`
	NewestEntry     time.Time `json:"newestEntry"`
}
