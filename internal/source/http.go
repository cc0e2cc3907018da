package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultFetchTimeout applies when NewHTTP is given a non-positive timeout.
const DefaultFetchTimeout = 30 * time.Second

// HTTP fetches the table with a GET request, typically a published
// spreadsheet export URL.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP returns a source fetching url with the given timeout per request.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTP{url: url, client: &http.Client{Timeout: timeout}}
}

// Name returns the URL.
func (h *HTTP) Name() string {
	return h.url
}

// Open issues the request and returns the response body.
// Any non-2xx status is an error and the body is discarded.
func (h *HTTP) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", h.url, resp.Status)
	}
	return resp.Body, nil
}
