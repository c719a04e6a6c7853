// Package handlers provides the HTTP handlers of the tool server: tool
// listing, tool invocation and health reporting.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/blang/semver"
	"github.com/giygas/substance-mapper/interfaces"
	"github.com/giygas/substance-mapper/logging"
	"github.com/giygas/substance-mapper/tools"
	"github.com/go-chi/chi/v5"
)

// HTTPHandler serves the tool registry over HTTP
type HTTPHandler struct {
	registry *tools.Registry
	health   interfaces.HealthChecker
	version  semver.Version
	maxBody  int64
}

// NewHTTPHandler creates a handler. maxBody bounds tool argument bodies;
// 0 disables the limit.
func NewHTTPHandler(registry *tools.Registry, health interfaces.HealthChecker, version semver.Version, maxBody int64) *HTTPHandler {
	return &HTTPHandler{
		registry: registry,
		health:   health,
		version:  version,
		maxBody:  maxBody,
	}
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, code, data)
}

// RespondWithError writes a tool style failure response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

func writeJSON(w http.ResponseWriter, code int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

type listResponse struct {
	Version string        `json:"version"`
	Tools   []*tools.Tool `json:"tools"`
}

// ListTools returns every tool with its parameters
func (h *HTTPHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, listResponse{
		Version: h.version.String(),
		Tools:   h.registry.List(),
	})
}

// InvokeTool runs the tool named in the path with the JSON object body
// as arguments. Tool failures answer 200 with success false; only unknown
// tools and unreadable bodies change the status code.
func (h *HTTPHandler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			logging.Warn("Tool arguments too large", "tool", name, "limit", maxErr.Limit)
			RespondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", maxErr.Limit))
			return
		}
		RespondWithError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !isJSONObject(raw) {
		logging.Warn("Unusual user input", "tool", name)
		RespondWithError(w, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}

	out, err := h.registry.Invoke(r.Context(), name, raw)
	if errors.Is(err, tools.ErrUnknownTool) {
		writeJSON(w, http.StatusNotFound, out)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func isJSONObject(raw []byte) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

// HealthCheck reports upstream reachability and cache statistics
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, code := h.health.HealthCheck()

	response := map[string]any{"status": status}
	for k, v := range data {
		response[k] = v
	}

	RespondWithJSON(w, code, response)
}
