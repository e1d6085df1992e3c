// Package export renders clipboard entries as JSON, CSV or plain text. Which
// entries to render is the caller's query; this package only formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/joshuasalcedo-dev/fx/internal/database"
)

// Format identifies a supported export rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
)

// ContentType returns the MIME type for the rendered format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	default:
		return "text/plain"
	}
}

// Render formats the entries in the requested format.
func Render(format Format, entries []*database.ClipboardEntry) (string, error) {
	switch format {
	case FormatJSON:
		return renderJSON(entries)
	case FormatCSV:
		return renderCSV(entries)
	case FormatText:
		return renderText(entries), nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}

type jsonEntry struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Pinned    bool      `json:"pinned"`
}

func renderJSON(entries []*database.ClipboardEntry) (string, error) {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, jsonEntry{
			ID:        e.ID,
			Content:   e.Content,
			Timestamp: e.Timestamp,
			Pinned:    e.Pinned,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal entries: %w", err)
	}
	return string(data), nil
}

func renderCSV(entries []*database.ClipboardEntry) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"ID", "Content", "Timestamp", "Pinned"}); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.Content,
			e.Timestamp.Format(time.RFC3339),
			strconv.FormatBool(e.Pinned),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}

func renderText(entries []*database.ClipboardEntry) string {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "=== Entry %d ===\n", e.ID)
		fmt.Fprintf(&buf, "Time: %s\n", e.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(&buf, "Pinned: %t\n", e.Pinned)
		fmt.Fprintf(&buf, "Content:\n%s\n\n", e.Content)
	}
	return buf.String()
}
