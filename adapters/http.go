package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brettbedarf/treefs/internal/util"
)

// ErrReadOnly is returned when saving to a store that only serves dumps
var ErrReadOnly = errors.New("store is read-only")

// HTTPClient is the part of [http.Client] the store needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPStore fetches dumps with GET requests. It cannot save: the tree can be
// loaded or opened from a URL, but auto-save to it fails with [ErrReadOnly].
type HTTPStore struct {
	client  HTTPClient
	Headers map[string]string // sent with every request
	Timeout time.Duration     // per request; 0 means none
}

// NewHTTPStore returns a store using client, or [http.DefaultClient] when nil
func NewHTTPStore(client HTTPClient) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{client: client}
}

// validateURL accepts absolute http(s) URLs with a host and no user info
func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != HTTPType && u.Scheme != HTTPSType {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL has no host: %q", raw)
	}
	if u.User != nil {
		return nil, fmt.Errorf("URL must not carry user info: %q", u.Redacted())
	}
	return u, nil
}

func (h *HTTPStore) newRequest(ctx context.Context, method, raw string) (*http.Request, error) {
	u, err := validateURL(raw)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}

	// Add custom headers
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Read GETs the dump at rawURL. A 404 or 410 response matches
// [fs.ErrNotExist] so opening a missing URL starts an empty tree.
func (h *HTTPStore) Read(rawURL string) ([]byte, error) {
	logger := util.GetLogger("HTTPStore.Read")

	ctx := context.Background()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	req, err := h.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("GET %s: %s: %w", req.URL.Redacted(), resp.Status, fs.ErrNotExist)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("GET %s: %s", req.URL.Redacted(), resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", req.URL.Redacted(), err)
	}
	logger.Debug().Str("url", req.URL.Redacted()).Int("bytes", len(data)).Msg("Dump fetched")
	return data, nil
}

func (h *HTTPStore) Write(rawURL string, _ []byte) error {
	return fmt.Errorf("%w: %s", ErrReadOnly, rawURL)
}
