// Package providertest runs a fake Discord API for tests
package providertest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/oauth2-login-callback/internal/provider"
)

// Credentials the fake server accepts
const (
	ClientID     = "test-client"
	ClientSecret = "test-secret"
	RedirectURI  = "https://app.example.test/callback"
	AccessToken  = "tok"
	ValidCode    = "valid123"
)

// Default response bodies
const (
	TokenBody   = `{"access_token":"tok","token_type":"Bearer","scope":"identify guilds","expires_in":604800,"refresh_token":"refresh-tok"}`
	ProfileBody = `{"id":"99","username":"bob","avatar":null,"discriminator":"3","locale":"en-US"}`
	GuildsBody  = `[{"id":"1","name":"G1","icon":null,"permissions":"0"}]`

	InvalidGrantBody = `{"error":"invalid_grant","error_description":"Invalid \"code\" in request."}`
	UnauthorizedBody = `{"message":"401: Unauthorized","code":0}`
)

// Server is a fake Discord API. The token endpoint validates the client
// credentials and accepts each code at most once; the user endpoints require
// the bearer token it issues. Any endpoint can be replaced per test.
type Server struct {
	*httptest.Server

	tokenCalls   atomic.Int32
	profileCalls atomic.Int32
	guildsCalls  atomic.Int32

	mu      sync.Mutex
	used    map[string]bool
	token   http.HandlerFunc
	profile http.HandlerFunc
	guilds  http.HandlerFunc
}

// NewServer starts a fake API that is closed when the test ends
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{used: make(map[string]bool)}
	s.token = s.defaultToken
	s.profile = s.requireBearer(ProfileBody)
	s.guilds = s.requireBearer(GuildsBody)

	r := chi.NewRouter()
	r.Post("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls.Add(1)
		s.handler(&s.token)(w, r)
	})
	r.Get("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		s.profileCalls.Add(1)
		s.handler(&s.profile)(w, r)
	})
	r.Get("/users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		s.guildsCalls.Add(1)
		s.handler(&s.guilds)(w, r)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Config returns provider settings pointing at the fake server
func (s *Server) Config() provider.Config {
	return provider.Config{
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		RedirectURI:  RedirectURI,
		APIURL:       s.URL,
		AuthorizeURL: s.URL + "/oauth2/authorize",
		Scopes:       []string{"identify", "guilds"},
		Timeout:      2 * time.Second,
	}
}

// HandleToken replaces the token endpoint
func (s *Server) HandleToken(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = h
}

// HandleProfile replaces the profile endpoint
func (s *Server) HandleProfile(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = h
}

// HandleGuilds replaces the guild list endpoint
func (s *Server) HandleGuilds(h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds = h
}

// TokenCalls returns how many token requests were received
func (s *Server) TokenCalls() int { return int(s.tokenCalls.Load()) }

// ProfileCalls returns how many profile requests were received
func (s *Server) ProfileCalls() int { return int(s.profileCalls.Load()) }

// GuildsCalls returns how many guild list requests were received
func (s *Server) GuildsCalls() int { return int(s.guildsCalls.Load()) }

// Calls returns the total number of requests received
func (s *Server) Calls() int {
	return s.TokenCalls() + s.ProfileCalls() + s.GuildsCalls()
}

// Respond returns a handler writing a fixed status and body
func Respond(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// JSON returns a handler writing a fixed JSON body
func JSON(status int, body string) http.HandlerFunc {
	return Respond(status, "application/json", body)
}

func (s *Server) handler(h *http.HandlerFunc) http.HandlerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *h
}

func (s *Server) defaultToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		JSON(http.StatusBadRequest, `{"error":"invalid_request"}`)(w, r)
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		JSON(http.StatusUnauthorized, `{"error":"invalid_client"}`)(w, r)
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		JSON(http.StatusBadRequest, `{"error":"unsupported_grant_type"}`)(w, r)
		return
	}
	if r.PostForm.Get("redirect_uri") != RedirectURI {
		JSON(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid \"redirect_uri\" in request."}`)(w, r)
		return
	}

	code := r.PostForm.Get("code")
	s.mu.Lock()
	reused := s.used[code]
	s.used[code] = true
	s.mu.Unlock()

	if code != ValidCode || reused {
		JSON(http.StatusBadRequest, InvalidGrantBody)(w, r)
		return
	}
	JSON(http.StatusOK, TokenBody)(w, r)
}

func (s *Server) requireBearer(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+AccessToken {
			JSON(http.StatusUnauthorized, UnauthorizedBody)(w, r)
			return
		}
		JSON(http.StatusOK, body)(w, r)
	}
}
