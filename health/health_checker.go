// Package health reports the state of the mapper from the latest upstream
// probes and the lookup caches.
package health

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/giygas/substance-mapper/cache"
	"github.com/giygas/substance-mapper/interfaces"
)

// Health states
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusStarting = "starting"
)

// CacheReporter is implemented by components holding a lookup cache
type CacheReporter interface {
	CacheStats() cache.Stats
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	upstreams interfaces.UpstreamStatus
	caches    []CacheReporter
	version   semver.Version
	startedAt time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(upstreams interfaces.UpstreamStatus, version semver.Version, caches ...CacheReporter) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		upstreams: upstreams,
		caches:    caches,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthCheck derives the status from the probe snapshot. Lookups keep
// working through fallbacks while an upstream is down, so a degraded
// service still answers 200.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	snapshot := h.upstreams.Snapshot()

	var unreachable []string
	for _, r := range snapshot {
		if !r.Reachable {
			unreachable = append(unreachable, r.Name)
		}
	}

	switch {
	case len(snapshot) == 0:
		status = StatusStarting
	case len(unreachable) > 0:
		status = StatusDegraded
	default:
		status = StatusHealthy
	}
	httpStatus = http.StatusOK

	caches := make([]cache.Stats, 0, len(h.caches))
	for _, c := range h.caches {
		caches = append(caches, c.CacheStats())
	}

	data = map[string]any{
		"version":        h.version.String(),
		"uptime":         formatUptimeHuman(time.Since(h.startedAt)),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"upstreams":      snapshot,
		"caches":         caches,
	}
	if len(unreachable) > 0 {
		data["unreachable"] = unreachable
	}

	return status, data, httpStatus
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
