// Package mapper annotates medication documents with SNOMED CT concepts
// and ATC codes
package mapper

import (
	"context"
	"log/slog"
	"time"

	"github.com/giygas/substance-mapper/document"
	"github.com/giygas/substance-mapper/entities"
	"github.com/giygas/substance-mapper/interfaces"
	"github.com/google/uuid"
)

// Entry is one medication with its resolved codes
type Entry struct {
	Medication entities.Medication
	Match      entities.MatchResult
	ATC        entities.ATCResolution
}

// Result is the outcome of mapping one document
type Result struct {
	RunID   string
	Entries []Entry
	// ParseErr is set when the input was not a valid document
	ParseErr error
}

// Summary counts entries per outcome
type Summary struct {
	Total       int     `json:"total"`
	Found       int     `json:"found"`
	NotFound    int     `json:"not_found"`
	SuccessRate float64 `json:"success_rate"`
}

// Mapper resolves every entry of a document through a matcher and an ATC
// resolver. Both are expected to cache, so repeated substances are looked
// up once.
type Mapper struct {
	matcher interfaces.SubstanceMatcher
	atc     interfaces.ATCResolver
	logger  *slog.Logger
}

// New creates a Mapper
func New(matcher interfaces.SubstanceMatcher, atc interfaces.ATCResolver, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{matcher: matcher, atc: atc, logger: logger}
}

// Map parses content and resolves its entries in document order. A limit
// above 0 keeps only the first limit entries. An invalid document is
// logged and yields a Result without entries.
func (m *Mapper) Map(ctx context.Context, content string, limit int) *Result {
	runID := uuid.NewString()
	logger := m.logger.With("run_id", runID)

	meds, err := document.Parse(content)
	if err != nil {
		logger.Warn("Could not parse medication document", "error", err)
		return &Result{RunID: runID, ParseErr: err}
	}

	if limit > 0 && len(meds) > limit {
		logger.Info("Truncating medication list", "entries", len(meds), "limit", limit)
		meds = meds[:limit]
	}

	start := time.Now()
	result := &Result{RunID: runID, Entries: make([]Entry, 0, len(meds))}
	for _, med := range meds {
		entry := m.Resolve(ctx, med)
		logger.Debug("Medication mapped",
			"sub_id", med.SubID,
			"substance", med.Substance,
			"snomed_ct", entry.Match.ConceptID(),
			"atc", entry.ATC.Codes,
		)
		result.Entries = append(result.Entries, entry)
	}

	s := result.Summary()
	logger.Info("Document mapped",
		"total", s.Total,
		"found", s.Found,
		"not_found", s.NotFound,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result
}

// Resolve looks up the codes of a single medication
func (m *Mapper) Resolve(ctx context.Context, med entities.Medication) Entry {
	return Entry{
		Medication: med,
		Match:      m.matcher.Resolve(ctx, med.Substance),
		ATC:        m.atc.Resolve(ctx, med.Substance),
	}
}

// Summary counts found and not found entries. The success rate is 0 for
// an empty result.
func (r *Result) Summary() Summary {
	s := Summary{Total: len(r.Entries)}
	for _, e := range r.Entries {
		if e.Match.Found {
			s.Found++
		}
	}
	s.NotFound = s.Total - s.Found
	if s.Total > 0 {
		s.SuccessRate = float64(s.Found) / float64(s.Total) * 100
	}
	return s
}

// Records converts the entries for rendering
func (r *Result) Records() []document.Record {
	records := make([]document.Record, 0, len(r.Entries))
	for _, e := range r.Entries {
		records = append(records, document.Record{
			Medication: e.Medication,
			SnomedCT:   e.Match.ConceptID(),
			ATC:        e.ATC.Codes,
		})
	}
	return records
}

// Render produces the annotated output document
func (r *Result) Render() string {
	return document.Render(r.Records())
}
