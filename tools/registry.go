// Package tools exposes the mapper as named tools taking JSON arguments and
// answering JSON documents, for the tool server and the tools command
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/giygas/substance-mapper/metrics"
)

// ErrUnknownTool is returned by Invoke for names that are not registered
var ErrUnknownTool = errors.New("unknown tool")

// HandlerFunc runs a tool. Returned values are encoded as the response;
// returned errors become a failure response.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Param describes one tool argument
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Tool is a registered tool
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []Param     `json:"parameters"`
	Handler     HandlerFunc `json:"-"`
}

// Registry is a thread-safe set of tools keyed by name
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates an empty Registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]*Tool), logger: logger}
}

// Register adds or replaces a tool
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// Get returns the named tool or nil
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all tools sorted by name
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Invoke runs the named tool and returns its JSON response, indented by
// two spaces. The response is always a JSON document: handler errors and
// panics are reported as {"success": false, "error": ...}. The error is
// ErrUnknownTool when name is not registered and nil otherwise.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) ([]byte, error) {
	tool := r.Get(name)
	if tool == nil {
		metrics.ToolInvocations.WithLabelValues("unknown", "unknown_tool").Inc()
		return Encode(failure{Error: fmt.Sprintf("Unknown tool: %s", name)}), ErrUnknownTool
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}

	start := time.Now()
	value, err := r.call(ctx, tool, args)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.logger.Warn("Tool failed", "tool", name, "error", err)
		value = failure{Error: err.Error()}
	}

	metrics.ToolInvocations.WithLabelValues(name, outcome).Inc()
	r.logger.Debug("Tool invoked", "tool", name, "outcome", outcome, "duration_ms", time.Since(start).Milliseconds())

	return Encode(value), nil
}

func (r *Registry) call(ctx context.Context, tool *Tool, args json.RawMessage) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error in %s: %v", tool.Name, rec)
		}
	}()
	return tool.Handler(ctx, args)
}

// Encode renders v as indented JSON without HTML escaping
func Encode(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return []byte(`{"success": false, "error": "failed to encode response"}`)
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// decodeArgs unmarshals tool arguments into dst
func decodeArgs(args json.RawMessage, dst any) error {
	if err := json.Unmarshal(args, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
