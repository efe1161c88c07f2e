package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody caps how much of an error response ends up in the error.
	maxErrorBody = 512
)

// call describes one JSON request against a Polymarket service.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
}

// rest is the JSON transport shared by the Gamma, Data, CLOB and executor
// clients.
type rest struct {
	base string
	http *http.Client
}

func newREST(base string, timeout time.Duration) rest {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return rest{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// do sends c and decodes a 2xx response into out. out may be nil.
func (r rest) do(ctx context.Context, c call, out any) error {
	target := r.base + c.path
	if len(c.query) > 0 {
		target += "?" + c.query.Encode()
	}

	var payload io.Reader
	if c.body != nil {
		buf, err := json.Marshal(c.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, target, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, snippet)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// statusError maps a failed HTTP status onto the domain sentinels.
func statusError(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var sentinel error
	switch code {
	case http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimited
	default:
		return fmt.Errorf("http %d: %s", code, msg)
	}
	return fmt.Errorf("%w (http %d): %s", sentinel, code, msg)
}

// headerOf turns a flat header map into an http.Header.
func headerOf(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
