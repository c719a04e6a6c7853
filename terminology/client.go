// Package terminology is a client for the Snowstorm concept search API of
// the Norwegian SNOMED CT edition
package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/substance-mapper/entities"
	"github.com/giygas/substance-mapper/metrics"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/juju/ratelimit"
)

// MedicinalProductECL limits searches to medicinal products without a
// manufactured dose form
const MedicinalProductECL = "< 763158003 |Medicinal product| MINUS (* : 411116001 |Has manufactured dose form| = *)"

const (
	userAgent       = "XML-Medicinal-Product-Mapper/1.0"
	maxResponseBody = 10 << 20
)

// Options configures a Client
type Options struct {
	BaseURL      string
	Branch       string
	Timeout      time.Duration // 0 leaves requests unbounded
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Rate         float64 // requests per second, 0 disables throttling
	Logger       *slog.Logger
}

// Client searches concepts on a Snowstorm server
type Client struct {
	baseURL string
	branch  string
	http    *retryablehttp.Client
	bucket  *ratelimit.Bucket
	logger  *slog.Logger
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ConceptID        string      `json:"conceptId"`
	Active           bool        `json:"active"`
	DefinitionStatus string      `json:"definitionStatus"`
	EffectiveTime    string      `json:"effectiveTime"`
	FSN              *termObject `json:"fsn"`
	PT               *termObject `json:"pt"`
}

type termObject struct {
	Term string `json:"term"`
}

func (t *termObject) text() string {
	if t == nil {
		return ""
	}
	return t.Term
}

// NewClient creates a Client from opts
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	retryClient.HTTPClient = &http.Client{Timeout: opts.Timeout}
	retryClient.Logger = logger.With("component", "terminology")

	var bucket *ratelimit.Bucket
	if opts.Rate > 0 {
		bucket = ratelimit.NewBucketWithRate(opts.Rate, max(1, int64(opts.Rate)))
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		branch:  opts.Branch,
		http:    retryClient,
		bucket:  bucket,
		logger:  logger,
	}
}

// conceptsURL builds the concept search URL, encoding the branch as one
// path segment
func (c *Client) conceptsURL(term string, limit int) string {
	params := url.Values{}
	params.Set("activeFilter", "true")
	params.Set("term", term)
	params.Set("ecl", MedicinalProductECL)
	params.Set("offset", "0")
	params.Set("limit", strconv.Itoa(limit))

	return fmt.Sprintf("%s/snowstorm/snomed-ct/%s/concepts?%s", c.baseURL, url.PathEscape(c.branch), params.Encode())
}

// Search returns the concepts matching term. Upstream failures are logged
// and yield an empty slice.
func (c *Client) Search(ctx context.Context, term string, limit int) []entities.Concept {
	var resp searchResponse
	if err := c.get(ctx, c.conceptsURL(term, limit), &resp); err != nil {
		c.logger.Warn("Concept search failed", "term", term, "error", err)
		return []entities.Concept{}
	}

	concepts := make([]entities.Concept, 0, len(resp.Items))
	for _, item := range resp.Items {
		concepts = append(concepts, entities.Concept{
			ConceptID:          item.ConceptID,
			FullySpecifiedName: item.FSN.text(),
			PreferredTerm:      item.PT.text(),
			Active:             item.Active,
			DefinitionStatus:   item.DefinitionStatus,
			EffectiveTime:      item.EffectiveTime,
		})
	}

	c.logger.Debug("Concept search", "term", term, "results", len(concepts))
	return concepts
}

// Name identifies the terminology server in probe results
func (c *Client) Name() string {
	return metrics.ServiceTerminology
}

// Ping runs a minimal search to check the server answers
func (c *Client) Ping(ctx context.Context) error {
	var resp searchResponse
	return c.get(ctx, c.conceptsURL("paracetamol", 1), &resp)
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	if c.bucket != nil {
		c.bucket.Wait(1)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(metrics.ServiceTerminology, "error", time.Since(start).Seconds())
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.ObserveUpstream(metrics.ServiceTerminology, metrics.StatusClass(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
