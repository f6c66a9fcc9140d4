// Package xano provides a client for the Xano endpoint that serves the
// existing offer database.
package xano

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casino-research/internal/resilience"
)

// Record is one offer row as returned by Xano. Its shape varies between
// table versions, so fields are left untyped.
type Record map[string]any

// Client fetches the existing offers.
type Client interface {
	FetchOffers(ctx context.Context) ([]Record, error)
}

// Option configures the Xano client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	url   string
	http  *http.Client
	retry resilience.RetryConfig
}

// NewClient creates a client for the offers endpoint at url.
func NewClient(url string, opts ...Option) Client {
	c := &httpClient{
		url:   url,
		http:  &http.Client{Timeout: 30 * time.Second},
		retry: resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("xano", "fetch_offers")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FetchOffers(ctx context.Context) ([]Record, error) {
	if c.url == "" {
		return nil, eris.New("xano: url is not configured")
	}

	body, err := resilience.DoVal(ctx, c.retry, c.get)
	if err != nil {
		return nil, eris.Wrap(err, "xano: fetch offers")
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, eris.Wrap(err, "xano: decode offers")
	}
	return records, nil
}

func (c *httpClient) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "xano: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "xano: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("xano: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	return body, nil
}

// decodeRecords accepts either a JSON array of records or a single record.
func decodeRecords(body []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return nil, eris.New("no data returned")
	case trimmed[0] == '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	default:
		var rec Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	}
}
