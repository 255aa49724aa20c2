// Package signin sends the browser to the Discord consent page
package signin

import "net/http"

// AuthURLer builds the provider authorization URL
type AuthURLer interface {
	AuthCodeURL() string
}

// Handler redirects to the provider's authorize endpoint
type Handler struct {
	provider AuthURLer
}

// New creates a sign-in redirect handler
func New(provider AuthURLer) *Handler {
	return &Handler{provider: provider}
}

// ServeHTTP responds with a 302 to the consent page. Discord sends the
// user back to the configured redirect URI with ?code=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.provider.AuthCodeURL(), http.StatusFound)
}
