package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

type memWriter struct {
	objects      map[string][]byte
	contentTypes map[string]string
	err          error
}

func (w *memWriter) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.objects[key] = body
	if w.contentTypes != nil {
		w.contentTypes[key] = contentType
	}
	return nil
}

type stubTrades []domain.TradeRecord

func (s stubTrades) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	var out []domain.TradeRecord
	for _, t := range s {
		if t.CreatedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

type stubAudit struct{ events []string }

func (a *stubAudit) Log(ctx context.Context, event string, detail map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func TestArchivePath(t *testing.T) {
	cutoff := time.Date(2025, 3, 1, 1, 0, 0, 0, time.FixedZone("EST", -5*3600))
	if got := archivePath("trades", cutoff); got != "archive/trades/2025-03.jsonl" {
		t.Errorf("archivePath() = %q", got)
	}
}

func TestMarshalJSONL(t *testing.T) {
	buf, err := marshalJSONL([]map[string]string{{"a": "<b>"}, {"c": "d"}})
	if err != nil {
		t.Fatalf("marshalJSONL: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(buf)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != `{"a":"<b>"}` {
		t.Errorf("line 0 = %s", lines[0])
	}
}

func TestArchiveTrades(t *testing.T) {
	cutoff := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	trades := stubTrades{
		{TradeID: "trade_1", CreatedAt: cutoff.Add(-48 * time.Hour)},
		{TradeID: "trade_2", CreatedAt: cutoff.Add(-time.Hour)},
		{TradeID: "trade_3", CreatedAt: cutoff.Add(time.Hour)},
	}
	w := &memWriter{objects: map[string][]byte{}, contentTypes: map[string]string{}}
	audit := &stubAudit{}

	n, err := NewArchiver(w, trades, audit).ArchiveTrades(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveTrades: %v", err)
	}
	if n != 2 {
		t.Errorf("archived %d, want 2", n)
	}

	data, ok := w.objects["archive/trades/2025-02.jsonl"]
	if !ok {
		t.Fatalf("object not written; have %v", w.objects)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	var ids []string
	for dec.More() {
		var rec domain.TradeRecord
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		ids = append(ids, rec.TradeID)
	}
	if len(ids) != 2 || ids[0] != "trade_1" || ids[1] != "trade_2" {
		t.Errorf("archived ids = %v", ids)
	}
	if ct := w.contentTypes["archive/trades/2025-02.jsonl"]; ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}
	if len(audit.events) != 1 || audit.events[0] != "archive.trades" {
		t.Errorf("audit events = %v", audit.events)
	}
}

func TestArchiveTradesNothingToDo(t *testing.T) {
	w := &memWriter{objects: map[string][]byte{}}
	n, err := NewArchiver(w, stubTrades{}, nil).ArchiveTrades(context.Background(), time.Now())
	if err != nil || n != 0 {
		t.Fatalf("ArchiveTrades() = %d, %v", n, err)
	}
	if len(w.objects) != 0 {
		t.Error("nothing should be uploaded")
	}
}

func TestArchiveTradesUploadError(t *testing.T) {
	w := &memWriter{objects: map[string][]byte{}, err: errors.New("access denied")}
	trades := stubTrades{{TradeID: "t", CreatedAt: time.Unix(0, 0)}}
	if _, err := NewArchiver(w, trades, nil).ArchiveTrades(context.Background(), time.Now()); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"https://s3.example.com", false, "https://s3.example.com"},
		{"minio:9000", false, "http://minio:9000"},
		{"r2.example.com", true, "https://r2.example.com"},
	}
	for _, tt := range tests {
		if got := endpointURL(tt.in, tt.useSSL); got != tt.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", tt.in, tt.useSSL, got, tt.want)
		}
	}
}
