package atc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/giygas/substance-mapper/metrics"
	"github.com/juju/ratelimit"
	"golang.org/x/text/encoding/charmap"
)

const maxPageSize = 5 << 20

// HTTPFetcher downloads pages from the substance register
type HTTPFetcher struct {
	client *http.Client
	bucket *ratelimit.Bucket
}

// NewHTTPFetcher creates a fetcher with a per-request timeout. rate limits
// requests per second; 0 disables throttling.
func NewHTTPFetcher(timeout time.Duration, rate float64) *HTTPFetcher {
	f := &HTTPFetcher{client: &http.Client{Timeout: timeout}}
	if rate > 0 {
		f.bucket = ratelimit.NewBucketWithRate(rate, max(1, int64(rate)))
	}
	return f
}

// Fetch returns the page body decoded to UTF-8 and the response status.
// Pages are served either as UTF-8 or ISO-8859-1.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	if f.bucket != nil {
		f.bucket.Wait(1)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "XML-Medicinal-Product-Mapper/1.0")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(metrics.ServiceATC, "error", time.Since(start).Seconds())
		return "", 0, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	metrics.ObserveUpstream(metrics.ServiceATC, metrics.StatusClass(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read %s: %w", url, err)
	}

	if utf8.Valid(bodyBytes) {
		return string(bodyBytes), resp.StatusCode, nil
	}

	decoded, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(bodyBytes)))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return string(decoded), resp.StatusCode, nil
}
