package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blang/semver"
	"github.com/giygas/substance-mapper/config"
	"github.com/giygas/substance-mapper/handlers"
	"github.com/giygas/substance-mapper/tools"
)

type mockHealthChecker struct{}

func (m *mockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return "healthy", map[string]any{"version": "0.1.0"}, http.StatusOK
}

func testConfig(env config.Environment) *config.Config {
	return &config.Config{
		Port:           "0",
		Address:        "127.0.0.1",
		Env:            env,
		LogLevel:       "error",
		MaxRequestBody: 1048576,
		MaxHeaderSize:  1048576,
	}
}

func newTestServer(env config.Environment) *Server {
	registry := tools.NewRegistry(nil)
	registry.Register(&tools.Tool{
		Name: "get_atc_codes",
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"success": true, "atc_codes": "N02BE01"}, nil
		},
	})
	h := handlers.NewHTTPHandler(registry, &mockHealthChecker{}, semver.MustParse("0.1.0"), 1048576)
	return NewServer(testConfig(env), h)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(config.EnvTest)
	defer s.rateLimiter.Stop()

	if s.Addr() != "127.0.0.1:0" {
		t.Errorf("Expected address 127.0.0.1:0, got %s", s.Addr())
	}
	if s.server.ReadTimeout != 15*time.Second {
		t.Errorf("Expected 15s read timeout, got %s", s.server.ReadTimeout)
	}
	if s.Handler() == nil {
		t.Error("Expected a router")
	}
}

func TestSetupRoutes(t *testing.T) {
	s := newTestServer(config.EnvTest)
	defer s.rateLimiter.Stop()

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		expected int
		contains string
	}{
		{"tool list", http.MethodGet, "/tools", "", http.StatusOK, `"get_atc_codes"`},
		{"tool call", http.MethodPost, "/tools/get_atc_codes", `{"substance_name": "Paracetamol"}`, http.StatusOK, `"N02BE01"`},
		{"unknown tool", http.MethodPost, "/tools/nope", `{}`, http.StatusNotFound, `"success": false`},
		{"health", http.MethodGet, "/health", "", http.StatusOK, `"healthy"`},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, "http_request_in_flight"},
		{"unknown route", http.MethodGet, "/database", "", http.StatusNotFound, `"success":false`},
		{"wrong method", http.MethodGet, "/tools/get_atc_codes", "", http.StatusMethodNotAllowed, `"success":false`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.RemoteAddr = "127.0.0.1:40000"
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Fatalf("Expected %d, got %d: %s", tt.expected, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.contains) {
				t.Errorf("Expected body to contain %s, got %s", tt.contains, rr.Body.String())
			}
		})
	}
}

func TestSetupMiddleware(t *testing.T) {
	s := newTestServer(config.EnvTest)
	defer s.rateLimiter.Stop()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if rr.Header().Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("Expected rate limit headers, got %v", rr.Header())
	}
}

func TestDirectAccessBlockedInProduction(t *testing.T) {
	tests := []struct {
		env      config.Environment
		expected int
	}{
		{config.EnvProduction, http.StatusForbidden},
		{config.EnvDevelopment, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.env.String(), func(t *testing.T) {
			s := newTestServer(tt.env)
			defer s.rateLimiter.Stop()

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.RemoteAddr = "203.0.113.20:5555"
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestServerLifecycle(t *testing.T) {
	s := newTestServer(config.EnvTest)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(l)
	}()

	resp, err := http.Get("http://" + l.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Errorf("Unexpected health response %d %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Server shutdown should not error: %v", err)
	}

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Expected ErrServerClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Server should have shutdown within 1 second")
	}
}
