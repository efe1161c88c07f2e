package domain

import (
	"context"
	"time"
)

// ObjectUploader stores a finished object under key, replacing any
// previous version.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}

// Archiver copies old records to cold storage before they are deleted.
type Archiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
}
