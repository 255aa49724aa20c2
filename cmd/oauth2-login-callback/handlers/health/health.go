// Package health reports whether the service can complete logins
package health

import (
	"context"
	"net/http"

	"github.com/wrale/oauth2-login-callback/cmd/oauth2-login-callback/handlers/common"
)

// Checker is implemented by components that can report their health
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// Handler processes health check requests
type Handler struct {
	login   Checker
	version string
}

// Response represents the health check response
type Response struct {
	Status  string         `json:"status"`
	Version string         `json:"version,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// New creates a new health check handler
func New(login Checker) *Handler {
	return &Handler{
		login:   login,
		version: "unknown",
	}
}

// WithVersion sets the version for health check responses
func (h *Handler) WithVersion(version string) *Handler {
	h.version = version
	return h
}

// ServeHTTP handles health check requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Status:  "healthy",
		Version: h.version,
		Details: make(map[string]any),
	}

	if err := h.login.CheckHealth(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.Details["login"] = map[string]any{
			"status":  "unhealthy",
			"message": err.Error(),
		}
	} else {
		response.Details["login"] = map[string]any{
			"status": "healthy",
		}
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	common.WriteJSON(w, status, response)
}
