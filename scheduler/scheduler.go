// Package scheduler runs the periodic reachability probe of the terminology
// server and the substance register. Probe results feed the health endpoint
// and the upstream_up gauge; lookups never depend on them.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/substance-mapper/interfaces"
	"github.com/giygas/substance-mapper/logging"
	"github.com/giygas/substance-mapper/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time checks
var (
	_ interfaces.Scheduler      = (*Scheduler)(nil)
	_ interfaces.UpstreamStatus = (*Scheduler)(nil)
)

// DefaultProbeTimeout bounds a single probe
const DefaultProbeTimeout = 10 * time.Second

// Scheduler probes every upstream on a fixed interval
type Scheduler struct {
	probers   []interfaces.Prober
	interval  time.Duration
	timeout   time.Duration
	scheduler *gocron.Scheduler

	mu      sync.RWMutex
	results map[string]interfaces.ProbeResult
	probing atomic.Bool
}

// NewScheduler creates a scheduler probing every interval
func NewScheduler(interval time.Duration, probers ...interfaces.Prober) *Scheduler {
	return &Scheduler{
		probers:   probers,
		interval:  interval,
		timeout:   DefaultProbeTimeout,
		scheduler: gocron.NewScheduler(time.Local),
		results:   make(map[string]interfaces.ProbeResult),
	}
}

// Start schedules the probes and returns without waiting for them. The
// first run fires immediately in the background. An unreachable upstream
// is logged; it does not fail the start.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("probe interval must be positive, got %s", s.interval)
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.ProbeAll(context.Background())
	})
	if err != nil {
		logging.Error("Failed to schedule upstream probe", "error", err)
		return fmt.Errorf("failed to schedule upstream probe: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Upstream probe scheduled", "interval", s.interval.String(), "upstreams", len(s.probers))

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ProbeAll pings every upstream once. Overlapping runs are skipped.
func (s *Scheduler) ProbeAll(ctx context.Context) {
	if !s.probing.CompareAndSwap(false, true) {
		logging.Info("Upstream probe already in progress, skipping...")
		return
	}
	defer s.probing.Store(false)

	for _, p := range s.probers {
		result := s.probe(ctx, p)

		s.mu.Lock()
		s.results[result.Name] = result
		s.mu.Unlock()

		if result.Reachable {
			metrics.UpstreamUp.WithLabelValues(result.Name).Set(1)
			logging.Debug("Upstream reachable", "upstream", result.Name, "latency", result.Latency)
		} else {
			metrics.UpstreamUp.WithLabelValues(result.Name).Set(0)
			logging.Warn("Upstream unreachable", "upstream", result.Name, "error", result.Error)
		}
	}
}

func (s *Scheduler) probe(ctx context.Context, p interfaces.Prober) interfaces.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	result := interfaces.ProbeResult{
		Name:      p.Name(),
		Reachable: err == nil,
		CheckedAt: time.Now(),
		Latency:   time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// Snapshot returns the latest result of every probed upstream in
// registration order. Upstreams not probed yet are left out.
func (s *Scheduler) Snapshot() []interfaces.ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]interfaces.ProbeResult, 0, len(s.results))
	for _, p := range s.probers {
		if r, ok := s.results[p.Name()]; ok {
			out = append(out, r)
		}
	}
	return out
}
