// Package atc resolves substance names to ATC codes from the Felleskatalogen
// substance register, with a static table for when the register fails
package atc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/giygas/substance-mapper/cache"
	"github.com/giygas/substance-mapper/entities"
	"github.com/giygas/substance-mapper/interfaces"
	"github.com/giygas/substance-mapper/metrics"
)

// DefaultBaseURL is the public Felleskatalogen site
const DefaultBaseURL = "https://www.felleskatalogen.no"

const registerPath = "/medisin/substansregister/"

// Resolver looks up ATC codes and caches every outcome
type Resolver struct {
	fetcher interfaces.PageFetcher
	baseURL string
	cache   *cache.Store[entities.ATCResolution]
	logger  *slog.Logger
}

// NewResolver creates a Resolver fetching pages below baseURL
func NewResolver(fetcher interfaces.PageFetcher, baseURL string, logger *slog.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache.NewStore[entities.ATCResolution]("atc"),
		logger:  logger.With("component", "atc"),
	}
}

// RegisterURL is the listing page of the substance register
func (r *Resolver) RegisterURL() string {
	return r.baseURL + registerPath
}

// SubstanceURL is the register page of one substance
func (r *Resolver) SubstanceURL(substance string) string {
	return r.RegisterURL() + url.PathEscape(strings.ToLower(substance))
}

// Resolve returns the ATC codes for substance. Only the first call for a
// given name reaches the register.
func (r *Resolver) Resolve(ctx context.Context, substance string) entities.ATCResolution {
	res, hit, err := r.cache.GetOrLoad(ctx, substance, func(ctx context.Context) entities.ATCResolution {
		return r.resolve(ctx, substance)
	})
	if err != nil {
		r.logger.Debug("Lookup abandoned", "substance", substance, "error", err)
		return entities.ATCResolution{Substance: substance, Codes: entities.ATCNotFound, Source: entities.ATCSourceNone}
	}
	metrics.ObserveCache(r.cache.Name(), hit)
	return res
}

// CacheStats reports the ATC cache counters
func (r *Resolver) CacheStats() cache.Stats {
	return r.cache.Stats()
}

func (r *Resolver) resolve(ctx context.Context, substance string) entities.ATCResolution {
	codes, source, err := r.scrape(ctx, substance)
	if err != nil {
		r.logger.Warn("Could not fetch ATC codes", "substance", substance, "error", err)
	}

	if codes == "" {
		if fallback, ok := FallbackCodes(substance); ok {
			codes, source = fallback, entities.ATCSourceFallback
		} else {
			codes, source = entities.ATCNotFound, entities.ATCSourceNone
		}
	}

	metrics.ATCSourceTotals.WithLabelValues(string(source)).Inc()
	r.logger.Debug("ATC codes resolved", "substance", substance, "source", source, "codes", codes)

	return entities.ATCResolution{Substance: substance, Codes: codes, Source: source}
}

// scrape tries the substance page, then the register listing. Any fetch
// error stops the chain.
func (r *Resolver) scrape(ctx context.Context, substance string) (string, entities.ATCSource, error) {
	body, status, err := r.fetcher.Fetch(ctx, r.SubstanceURL(substance))
	if err != nil {
		return "", entities.ATCSourceNone, fmt.Errorf("substance page: %w", err)
	}
	if status == http.StatusOK {
		if codes := ExtractCodes(body); codes != "" {
			return codes, entities.ATCSourceDirectPage, nil
		}
	}

	body, status, err = r.fetcher.Fetch(ctx, r.RegisterURL())
	if err != nil {
		return "", entities.ATCSourceNone, fmt.Errorf("register listing: %w", err)
	}
	if status == http.StatusOK && strings.Contains(strings.ToLower(body), strings.ToLower(substance)) {
		if codes := ExtractCodes(body); codes != "" {
			return codes, entities.ATCSourceListingPage, nil
		}
	}

	return "", entities.ATCSourceNone, nil
}

// Name identifies the register in probe results
func (r *Resolver) Name() string {
	return metrics.ServiceATC
}

// Ping checks that the register listing answers with 200
func (r *Resolver) Ping(ctx context.Context) error {
	_, status, err := r.fetcher.Fetch(ctx, r.RegisterURL())
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}
