package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// TradeArchiveStore is the slice of domain.TradeStore the archiver reads.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error)
}

// Archiver implements domain.Archiver by writing old trades to object
// storage as JSONL. It never deletes; the trade service removes rows only
// after a successful upload.
type Archiver struct {
	store  domain.ObjectUploader
	trades TradeArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver. audit may be nil.
func NewArchiver(store  domain.ObjectUploader, trades TradeArchiveStore, audit domain.AuditStore) *Archiver {
	return &Archiver{store: store, trades: trades, audit: audit}
}

// ArchiveTrades uploads every trade created before the cutoff to
// archive/trades/YYYY-MM.jsonl and returns how many were written.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.store.Upload(ctx, path, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	count := int64(len(trades))
	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.trades", map[string]any{
			"path":   path,
			"count":  count,
			"before": before.Format(time.RFC3339),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive trades audit log: %w", err)
		}
	}
	return count, nil
}

// archivePath partitions archives by the cutoff's UTC year-month:
//
//	archive/trades/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01"))
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
