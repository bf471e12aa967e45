package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ArchiveExporter copies a day of audit entries to object storage as JSON
// lines under yyyy/mm/dd.jsonl.
type ArchiveExporter struct {
	audit *AuditLogger
	store ObjectWriter
	log   zerolog.Logger
}

func NewArchiveExporter(audit *AuditLogger, store ObjectWriter, log zerolog.Logger) *ArchiveExporter {
	return &ArchiveExporter{
		audit: audit,
		store: store,
		log:   log,
	}
}

// ExportDay writes the UTC day containing day and returns the entry count.
// Empty days produce no object.
func (e *ArchiveExporter) ExportDay(ctx context.Context, day time.Time) (int, error) {
	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	entries, err := e.audit.ListSince(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list audit entries: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return 0, fmt.Errorf("encode audit entry %s: %w", entry.ID, err)
		}
	}

	key := ArchiveKey(from)
	if err := e.store.PutObject(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}

	e.log.Info().Str("key", key).Int("entries", len(entries)).Msg("audit archive exported")
	return len(entries), nil
}

func ArchiveKey(day time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d.jsonl", day.Year(), int(day.Month()), day.Day())
}
