package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giygas/substance-mapper/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockProber struct {
	name  string
	err   error
	calls atomic.Int32
	block chan struct{}
}

func (m *mockProber) Name() string { return m.name }

func (m *mockProber) Ping(ctx context.Context) error {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func TestStartProbesImmediately(t *testing.T) {
	up := &mockProber{name: "terminology"}
	down := &mockProber{name: "atc", err: errors.New("connection refused")}

	s := NewScheduler(time.Hour, up, down)
	if err := s.Start(); err != nil {
		t.Fatalf("Expected start to tolerate unreachable upstreams, got %v", err)
	}
	defer s.Stop()

	waitForSnapshot(t, s, 2)
	if up.calls.Load() != 1 || down.calls.Load() != 1 {
		t.Errorf("Expected one probe each, got %d and %d", up.calls.Load(), down.calls.Load())
	}

	snapshot := s.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(snapshot))
	}
	if snapshot[0].Name != "terminology" || !snapshot[0].Reachable {
		t.Errorf("Unexpected first result %+v", snapshot[0])
	}
	if snapshot[1].Name != "atc" || snapshot[1].Reachable || snapshot[1].Error != "connection refused" {
		t.Errorf("Unexpected second result %+v", snapshot[1])
	}
	if snapshot[0].CheckedAt.IsZero() || snapshot[0].Latency == "" {
		t.Errorf("Expected check time and latency, got %+v", snapshot[0])
	}

	if v := testutil.ToFloat64(metrics.UpstreamUp.WithLabelValues("terminology")); v != 1 {
		t.Errorf("Expected terminology gauge 1, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.UpstreamUp.WithLabelValues("atc")); v != 0 {
		t.Errorf("Expected atc gauge 0, got %v", v)
	}
}

func TestStartReturnsWhileUpstreamHangs(t *testing.T) {
	p := &mockProber{name: "terminology", block: make(chan struct{})}
	s := NewScheduler(time.Hour, p)

	returned := make(chan error, 1)
	go func() { returned <- s.Start() }()

	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("Unexpected start error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start blocked on a hanging upstream")
	}
	defer s.Stop()

	if got := s.Snapshot(); len(got) != 0 {
		t.Errorf("Expected no results while the upstream hangs, got %+v", got)
	}

	close(p.block)
	waitForSnapshot(t, s, 1)
	if got := s.Snapshot(); !got[0].Reachable {
		t.Errorf("Expected released upstream to be reachable, got %+v", got[0])
	}
}

func waitForSnapshot(t *testing.T, s *Scheduler, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(s.Snapshot()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d results, got %d", n, len(s.Snapshot()))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartRejectsNonPositiveInterval(t *testing.T) {
	s := NewScheduler(0, &mockProber{name: "terminology"})
	if err := s.Start(); err == nil {
		t.Error("Expected error for zero interval")
	}
}

func TestSnapshotBeforeFirstProbe(t *testing.T) {
	s := NewScheduler(time.Minute, &mockProber{name: "terminology"})
	if got := s.Snapshot(); len(got) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", got)
	}
}

func TestProbeAllReplacesResults(t *testing.T) {
	p := &mockProber{name: "atc", err: errors.New("timeout")}
	s := NewScheduler(time.Minute, p)

	s.ProbeAll(context.Background())
	if s.Snapshot()[0].Reachable {
		t.Fatal("Expected unreachable after first probe")
	}

	p.err = nil
	s.ProbeAll(context.Background())
	snapshot := s.Snapshot()
	if len(snapshot) != 1 || !snapshot[0].Reachable || snapshot[0].Error != "" {
		t.Errorf("Expected a single reachable result, got %+v", snapshot)
	}
}

func TestProbeAllSkipsOverlappingRuns(t *testing.T) {
	p := &mockProber{name: "terminology", block: make(chan struct{})}
	s := NewScheduler(time.Minute, p)

	done := make(chan struct{})
	go func() {
		s.ProbeAll(context.Background())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.ProbeAll(context.Background())
	close(p.block)
	<-done

	if calls := p.calls.Load(); calls != 1 {
		t.Errorf("Expected overlapping probe to be skipped, got %d calls", calls)
	}
}

func TestProbeTimeout(t *testing.T) {
	p := &mockProber{name: "terminology", block: make(chan struct{})}
	defer close(p.block)

	s := NewScheduler(time.Minute, p)
	s.timeout = 20 * time.Millisecond

	s.ProbeAll(context.Background())
	snapshot := s.Snapshot()
	if snapshot[0].Reachable || snapshot[0].Error == "" {
		t.Errorf("Expected timed out probe to be unreachable, got %+v", snapshot[0])
	}
}
