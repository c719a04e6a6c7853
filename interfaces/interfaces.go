// Package interfaces defines core abstractions for the substance mapper
// to improve testability and keep packages decoupled.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/substance-mapper/entities"
)

// ConceptSearcher defines the contract for the terminology search API.
// Implementations never fail: transport and decode errors yield an empty slice.
type ConceptSearcher interface {
	Search(ctx context.Context, term string, limit int) []entities.Concept
}

// PageFetcher fetches a page from the reference website and returns its
// decoded body and HTTP status code.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (body string, status int, err error)
}

// SubstanceMatcher resolves a substance name to a SNOMED CT concept.
type SubstanceMatcher interface {
	Resolve(ctx context.Context, substance string) entities.MatchResult
}

// ATCResolver resolves a substance name to its ATC codes.
type ATCResolver interface {
	Resolve(ctx context.Context, substance string) entities.ATCResolution
}

// Prober checks that an upstream dependency is reachable.
type Prober interface {
	Name() string
	Ping(ctx context.Context) error
}

// ProbeResult is the last known reachability of one upstream.
type ProbeResult struct {
	Name      string    `json:"name"`
	Reachable bool      `json:"reachable"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Latency   string    `json:"latency"`
}

// UpstreamStatus exposes the results of the most recent probes.
type UpstreamStatus interface {
	Snapshot() []ProbeResult
}

// Scheduler defines the contract for background jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status, details and the
	// HTTP status code to answer with.
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator validates user supplied tool arguments.
type DataValidator interface {
	ValidateSubstance(input string) error
	ValidateDocument(input string) error
}
