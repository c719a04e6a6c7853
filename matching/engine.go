// Package matching resolves substance names to SNOMED CT medicinal product
// concepts by running a cascade of searches against the terminology server
package matching

import (
	"context"
	"log/slog"

	"github.com/giygas/substance-mapper/cache"
	"github.com/giygas/substance-mapper/entities"
	"github.com/giygas/substance-mapper/interfaces"
	"github.com/giygas/substance-mapper/metrics"
)

// SearchLimit is the number of candidates requested per query
const SearchLimit = 100

// Strategy names used in logs and metrics
const (
	StrategyExactOnly = "exact_only"
	StrategyBestScore = "best_score"
	StrategyVariation = "variation"
	StrategyNone      = "none"
)

var _ interfaces.SubstanceMatcher = (*Engine)(nil)

// Engine resolves substances and caches every outcome, misses included
type Engine struct {
	searcher interfaces.ConceptSearcher
	cache    *cache.Store[entities.MatchResult]
	logger   *slog.Logger
}

// NewEngine creates an Engine over searcher
func NewEngine(searcher interfaces.ConceptSearcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		searcher: searcher,
		cache:    cache.NewStore[entities.MatchResult]("snomed"),
		logger:   logger.With("component", "matching"),
	}
}

// Resolve returns the concept for substance. Only the first call for a
// given name reaches the terminology server.
func (e *Engine) Resolve(ctx context.Context, substance string) entities.MatchResult {
	result, hit, err := e.cache.GetOrLoad(ctx, substance, func(ctx context.Context) entities.MatchResult {
		return e.resolve(ctx, substance)
	})
	if err != nil {
		e.logger.Debug("Lookup abandoned", "substance", substance, "error", err)
		return entities.MatchResult{Substance: substance, MatchClass: entities.NotFound}
	}
	metrics.ObserveCache(e.cache.Name(), hit)
	return result
}

// CacheStats reports the concept cache counters
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

func (e *Engine) resolve(ctx context.Context, substance string) entities.MatchResult {
	strategies := []struct {
		name string
		run  func(context.Context, string) (entities.Concept, bool)
	}{
		{StrategyExactOnly, e.exactOnly},
		{StrategyBestScore, e.bestScore},
		{StrategyVariation, e.variation},
	}

	for _, s := range strategies {
		concept, ok := s.run(ctx, substance)
		if !ok {
			continue
		}

		class := Classify(concept, substance)
		metrics.MatchStrategyTotals.WithLabelValues(s.name).Inc()
		e.logger.Debug("Substance resolved",
			"substance", substance,
			"strategy", s.name,
			"concept_id", concept.ConceptID,
			"match_type", class.String(),
		)

		return entities.MatchResult{
			Substance:  substance,
			Found:      true,
			Concept:    &concept,
			MatchClass: class,
		}
	}

	metrics.MatchStrategyTotals.WithLabelValues(StrategyNone).Inc()
	e.logger.Info("No medicinal product found", "substance", substance)
	return entities.MatchResult{Substance: substance, MatchClass: entities.NotFound}
}

// exactOnly looks for a "Product containing only <substance>" concept,
// searching the phrase with the substance as given, lowercased and title
// cased. The first qualifying candidate wins.
func (e *Engine) exactOnly(ctx context.Context, substance string) (entities.Concept, bool) {
	variants := caseVariants(substance)
	queries := make([]string, 0, len(variants))
	for _, v := range variants {
		queries = append(queries, "Product containing only "+v)
	}

	for _, q := range dedupe(queries) {
		for _, c := range e.searcher.Search(ctx, q, SearchLimit) {
			if IsExactOnlyMatch(c, substance) {
				return c, true
			}
		}
	}
	return entities.Concept{}, false
}

// bestScore searches the bare substance name and keeps the highest scoring
// candidate. Ties keep the first candidate seen.
func (e *Engine) bestScore(ctx context.Context, substance string) (entities.Concept, bool) {
	var best entities.Concept
	bestScore := ScoreNone

	for _, q := range caseVariants(substance) {
		for _, c := range e.searcher.Search(ctx, q, SearchLimit) {
			if score := Score(c, substance); score > bestScore {
				best, bestScore = c, score
			}
		}
	}

	return best, bestScore > ScoreNone
}

// variation searches the substance and its synonyms, returning the first
// candidate scoring at least ScoreMedium against the queried name
func (e *Engine) variation(ctx context.Context, substance string) (entities.Concept, bool) {
	for _, q := range dedupe(Variations(substance)) {
		for _, c := range e.searcher.Search(ctx, q, SearchLimit) {
			if Score(c, substance) >= ScoreMedium {
				return c, true
			}
		}
	}
	return entities.Concept{}, false
}
