// Package callback handles the OAuth2 redirect back from Discord
package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/wrale/oauth2-login-callback/cmd/oauth2-login-callback/handlers/common"
	"github.com/wrale/oauth2-login-callback/internal/login"
)

// Request bodies larger than this are treated as unparseable
const maxBodySize = 64 << 10

// Authenticator completes a login for an authorization code
type Authenticator interface {
	Login(ctx context.Context, code string) (*login.Result, error)
}

// Handler serves the login callback
type Handler struct {
	login Authenticator
}

// Config contains handler configuration
type Config struct {
	Login Authenticator
}

// New creates a callback handler
func New(cfg Config) *Handler {
	return &Handler{login: cfg.Login}
}

// ServeHTTP reads the code, runs the login and writes the envelope
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := extractCode(r)
	if code == "" {
		common.WriteFailure(w, login.ErrMissingCode)
		return
	}

	result, err := h.login.Login(r.Context(), code)
	if err != nil {
		common.WriteFailure(w, err)
		return
	}

	common.WriteSuccess(w, result)
}

// extractCode takes the code from the query string on GET and from a JSON
// body on POST. A body that cannot be read or parsed yields no code.
func extractCode(r *http.Request) string {
	switch r.Method {
	case http.MethodGet:
		return r.URL.Query().Get("code")

	case http.MethodPost:
		if r.Body == nil {
			return ""
		}
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		if err != nil || len(data) > maxBodySize {
			return ""
		}
		var body struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return ""
		}
		return body.Code
	}

	return ""
}
