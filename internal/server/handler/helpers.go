package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// writeJSON encodes v before touching the response so an encoding failure
// can still become a clean 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"response encoding failed"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts reads limit and offset. Missing or malformed values fall
// back to the defaults; limit is capped at maxPageSize.
func parseListOpts(r *http.Request) domain.ListOpts {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit == 0 {
		limit = defaultPageSize
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		offset = 0
	}
	return domain.ListOpts{Limit: min(limit, maxPageSize), Offset: offset}
}

// queryInt returns the named query parameter, def when absent, or an error
// when it is not a non-negative integer.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
