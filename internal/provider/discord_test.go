package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wrale/oauth2-login-callback/internal/provider"
	"github.com/wrale/oauth2-login-callback/internal/provider/providertest"
)

func newProvider(t *testing.T, cfg provider.Config) *provider.DiscordProvider {
	t.Helper()
	p, err := provider.NewDiscordProvider(cfg, nil)
	if err != nil {
		t.Fatalf("NewDiscordProvider() error = %v", err)
	}
	return p
}

func bearer() *provider.Token {
	return &provider.Token{AccessToken: providertest.AccessToken, TokenType: "Bearer"}
}

func TestNewDiscordProvider(t *testing.T) {
	valid := provider.Config{
		ClientID:     "id",
		RedirectURI:  "https://app.example.test/callback",
		APIURL:       "https://discord.com/api/",
		AuthorizeURL: "https://discord.com/oauth2/authorize",
	}

	tests := []struct {
		name    string
		mutate  func(*provider.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*provider.Config) {}},
		{name: "secret may be empty", mutate: func(c *provider.Config) { c.ClientSecret = "" }},
		{name: "missing client id", mutate: func(c *provider.Config) { c.ClientID = "" }, wantErr: true},
		{name: "missing redirect uri", mutate: func(c *provider.Config) { c.RedirectURI = "" }, wantErr: true},
		{name: "missing api url", mutate: func(c *provider.Config) { c.APIURL = "" }, wantErr: true},
		{name: "relative api url", mutate: func(c *provider.Config) { c.APIURL = "discord" }, wantErr: true},
		{name: "missing authorize url", mutate: func(c *provider.Config) { c.AuthorizeURL = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := provider.NewDiscordProvider(cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDiscordProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExchangeCode(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		handler    http.HandlerFunc
		noSecret   bool
		wantKind   error
		wantStatus int
		wantBody   any
		wantToken  *provider.Token
		wantCalls  int
	}{
		{
			name: "success",
			code: providertest.ValidCode,
			wantToken: &provider.Token{
				AccessToken:  "tok",
				TokenType:    "Bearer",
				Scope:        "identify guilds",
				ExpiresIn:    604800,
				RefreshToken: "refresh-tok",
			},
			wantCalls: 1,
		},
		{
			name:      "missing secret",
			code:      providertest.ValidCode,
			noSecret:  true,
			wantKind:  provider.ErrMissingSecret,
			wantCalls: 0,
		},
		{
			name:       "rejected code",
			code:       "bogus",
			wantKind:   provider.ErrRejected,
			wantStatus: http.StatusBadRequest,
			wantBody: map[string]any{
				"error":             "invalid_grant",
				"error_description": `Invalid "code" in request.`,
			},
			wantCalls: 1,
		},
		{
			name:       "non-json body",
			code:       providertest.ValidCode,
			handler:    providertest.Respond(http.StatusBadGateway, "text/html", "<html>bad gateway</html>"),
			wantKind:   provider.ErrInvalidResponse,
			wantStatus: http.StatusBadGateway,
			wantBody:   "<html>bad gateway</html>",
			wantCalls:  1,
		},
		{
			name:       "empty body",
			code:       providertest.ValidCode,
			handler:    providertest.Respond(http.StatusOK, "application/json", ""),
			wantKind:   provider.ErrInvalidResponse,
			wantStatus: http.StatusOK,
			wantBody:   "",
			wantCalls:  1,
		},
		{
			name:       "success without access token",
			code:       providertest.ValidCode,
			handler:    providertest.JSON(http.StatusOK, `{"token_type":"Bearer","scope":"identify"}`),
			wantKind:   provider.ErrMissingAccessToken,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"token_type": "Bearer", "scope": "identify"},
			wantCalls:  1,
		},
		{
			name:       "success without access token keeps other tokens out",
			code:       providertest.ValidCode,
			handler:    providertest.JSON(http.StatusOK, `{"token_type":"Bearer","refresh_token":"SECRET-REFRESH","id_token":"SECRET-ID"}`),
			wantKind:   provider.ErrMissingAccessToken,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"token_type": "Bearer"},
			wantCalls:  1,
		},
		{
			name:      "token type omitted",
			code:      providertest.ValidCode,
			handler:   providertest.JSON(http.StatusOK, `{"access_token":"abc"}`),
			wantToken: &provider.Token{AccessToken: "abc"},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := providertest.NewServer(t)
			if tt.handler != nil {
				srv.HandleToken(tt.handler)
			}
			cfg := srv.Config()
			if tt.noSecret {
				cfg.ClientSecret = ""
			}
			p := newProvider(t, cfg)

			token, err := p.ExchangeCode(context.Background(), tt.code)

			if got := srv.TokenCalls(); got != tt.wantCalls {
				t.Errorf("token endpoint calls = %d, want %d", got, tt.wantCalls)
			}

			if tt.wantKind == nil {
				if err != nil {
					t.Fatalf("ExchangeCode() error = %v", err)
				}
				if diff := cmp.Diff(tt.wantToken, token); diff != "" {
					t.Errorf("ExchangeCode() token mismatch (-want +got):\n%s", diff)
				}
				return
			}

			var perr *provider.Error
			if !errors.As(err, &perr) {
				t.Fatalf("ExchangeCode() error = %v, want *provider.Error", err)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("ExchangeCode() error kind = %v, want %v", perr.Kind, tt.wantKind)
			}
			if perr.Op != provider.OpToken {
				t.Errorf("ExchangeCode() op = %v, want %v", perr.Op, provider.OpToken)
			}
			if perr.Status != tt.wantStatus {
				t.Errorf("ExchangeCode() status = %d, want %d", perr.Status, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.wantBody, perr.Body); diff != "" {
				t.Errorf("ExchangeCode() body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExchangeCodeIsSingleUse(t *testing.T) {
	srv := providertest.NewServer(t)
	p := newProvider(t, srv.Config())
	ctx := context.Background()

	if _, err := p.ExchangeCode(ctx, providertest.ValidCode); err != nil {
		t.Fatalf("first ExchangeCode() error = %v", err)
	}

	_, err := p.ExchangeCode(ctx, providertest.ValidCode)
	if !errors.Is(err, provider.ErrRejected) {
		t.Fatalf("second ExchangeCode() error = %v, want %v", err, provider.ErrRejected)
	}
}

func TestExchangeCodeUnreachable(t *testing.T) {
	srv := providertest.NewServer(t)
	cfg := srv.Config()
	srv.Close()

	p := newProvider(t, cfg)
	_, err := p.ExchangeCode(context.Background(), providertest.ValidCode)
	if !errors.Is(err, provider.ErrUnreachable) {
		t.Fatalf("ExchangeCode() error = %v, want %v", err, provider.ErrUnreachable)
	}
}

func TestExchangeCodeTimeout(t *testing.T) {
	srv := providertest.NewServer(t)
	srv.HandleToken(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	cfg := srv.Config()
	cfg.Timeout = 50 * time.Millisecond

	p := newProvider(t, cfg)
	_, err := p.ExchangeCode(context.Background(), providertest.ValidCode)
	if !errors.Is(err, provider.ErrUnreachable) {
		t.Fatalf("ExchangeCode() error = %v, want %v", err, provider.ErrUnreachable)
	}
}

func TestFetchProfile(t *testing.T) {
	tests := []struct {
		name       string
		token      *provider.Token
		handler    http.HandlerFunc
		wantKind   error
		wantStatus int
		wantBody   any
		wantUser   *provider.User
	}{
		{
			name:  "success",
			token: bearer(),
			wantUser: &provider.User{
				ID:            "99",
				Username:      "bob",
				Discriminator: "3",
				Locale:        "en-US",
			},
		},
		{
			name:  "lowercase token type sent as Bearer",
			token: &provider.Token{AccessToken: providertest.AccessToken, TokenType: "bearer"},
			wantUser: &provider.User{
				ID:            "99",
				Username:      "bob",
				Discriminator: "3",
				Locale:        "en-US",
			},
		},
		{
			name:  "token type defaults to bearer",
			token: &provider.Token{AccessToken: providertest.AccessToken},
			wantUser: &provider.User{
				ID:            "99",
				Username:      "bob",
				Discriminator: "3",
				Locale:        "en-US",
			},
		},
		{
			name:     "numeric id and avatar hash",
			token:    bearer(),
			handler:  providertest.JSON(http.StatusOK, `{"id":42,"username":"amy","avatar":"abc123"}`),
			wantUser: &provider.User{ID: "42", Username: "amy", Avatar: "abc123"},
		},
		{
			name:       "wrong token",
			token:      &provider.Token{AccessToken: "other"},
			wantKind:   provider.ErrRejected,
			wantStatus: http.StatusUnauthorized,
			wantBody:   map[string]any{"message": "401: Unauthorized", "code": json.Number("0")},
		},
		{
			name:       "server error with text body",
			token:      bearer(),
			handler:    providertest.Respond(http.StatusInternalServerError, "text/plain", "upstream exploded"),
			wantKind:   provider.ErrRejected,
			wantStatus: http.StatusInternalServerError,
			wantBody:   "upstream exploded",
		},
		{
			name:       "empty object",
			token:      bearer(),
			handler:    providertest.JSON(http.StatusOK, `{}`),
			wantKind:   provider.ErrMissingUserID,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{},
		},
		{
			name:       "non-json success",
			token:      bearer(),
			handler:    providertest.Respond(http.StatusOK, "text/html", "<html></html>"),
			wantKind:   provider.ErrMissingUserID,
			wantStatus: http.StatusOK,
			wantBody:   "<html></html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := providertest.NewServer(t)
			if tt.handler != nil {
				srv.HandleProfile(tt.handler)
			}
			p := newProvider(t, srv.Config())

			user, err := p.FetchProfile(context.Background(), tt.token)

			if tt.wantKind == nil {
				if err != nil {
					t.Fatalf("FetchProfile() error = %v", err)
				}
				if diff := cmp.Diff(tt.wantUser, user); diff != "" {
					t.Errorf("FetchProfile() user mismatch (-want +got):\n%s", diff)
				}
				return
			}

			var perr *provider.Error
			if !errors.As(err, &perr) {
				t.Fatalf("FetchProfile() error = %v, want *provider.Error", err)
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("FetchProfile() error kind = %v, want %v", perr.Kind, tt.wantKind)
			}
			if perr.Status != tt.wantStatus {
				t.Errorf("FetchProfile() status = %d, want %d", perr.Status, tt.wantStatus)
			}
			if diff := cmp.Diff(tt.wantBody, perr.Body); diff != "" {
				t.Errorf("FetchProfile() body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchGuilds(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind error
		want     []provider.Guild
	}{
		{
			name: "success",
			want: []provider.Guild{{ID: "1", Name: "G1", Permissions: "0"}},
		},
		{
			name: "icons and numeric permissions",
			handler: providertest.JSON(http.StatusOK,
				`[{"id":"1","name":"G1","icon":"i1","permissions":"2147483647"},{"id":"2","name":"G2","icon":null,"permissions":8}]`),
			want: []provider.Guild{
				{ID: "1", Name: "G1", Icon: "i1", Permissions: "2147483647"},
				{ID: "2", Name: "G2", Permissions: "8"},
			},
		},
		{
			name:    "empty list",
			handler: providertest.JSON(http.StatusOK, `[]`),
			want:    []provider.Guild{},
		},
		{
			name:     "object instead of array",
			handler:  providertest.JSON(http.StatusOK, `{"error":"missing scope"}`),
			wantKind: provider.ErrInvalidResponse,
			want:     []provider.Guild{},
		},
		{
			name:     "forbidden",
			handler:  providertest.JSON(http.StatusForbidden, `{"message":"Missing Access","code":50001}`),
			wantKind: provider.ErrRejected,
			want:     []provider.Guild{},
		},
		{
			name:     "non-json",
			handler:  providertest.Respond(http.StatusOK, "text/plain", "nope"),
			wantKind: provider.ErrInvalidResponse,
			want:     []provider.Guild{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := providertest.NewServer(t)
			if tt.handler != nil {
				srv.HandleGuilds(tt.handler)
			}
			p := newProvider(t, srv.Config())

			result := p.FetchGuilds(context.Background(), bearer())

			if tt.wantKind == nil && result.Err() != nil {
				t.Errorf("FetchGuilds() err = %v, want nil", result.Err())
			}
			if tt.wantKind != nil && !errors.Is(result.Err(), tt.wantKind) {
				t.Errorf("FetchGuilds() err = %v, want %v", result.Err(), tt.wantKind)
			}
			if diff := cmp.Diff(tt.want, result.List()); diff != "" {
				t.Errorf("FetchGuilds() list mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchGuildsUnreachable(t *testing.T) {
	srv := providertest.NewServer(t)
	p := newProvider(t, srv.Config())
	srv.Close()

	result := p.FetchGuilds(context.Background(), bearer())
	if !errors.Is(result.Err(), provider.ErrUnreachable) {
		t.Errorf("FetchGuilds() err = %v, want %v", result.Err(), provider.ErrUnreachable)
	}
	if got := result.List(); got == nil || len(got) != 0 {
		t.Errorf("FetchGuilds() list = %#v, want empty non-nil slice", got)
	}
}

func TestAuthCodeURL(t *testing.T) {
	srv := providertest.NewServer(t)
	p := newProvider(t, srv.Config())

	u, err := url.Parse(p.AuthCodeURL())
	if err != nil {
		t.Fatalf("AuthCodeURL() not a URL: %v", err)
	}
	if got, want := u.Scheme+"://"+u.Host+u.Path, srv.URL+"/oauth2/authorize"; got != want {
		t.Errorf("AuthCodeURL() endpoint = %q, want %q", got, want)
	}

	want := map[string]string{
		"client_id":     providertest.ClientID,
		"redirect_uri":  providertest.RedirectURI,
		"response_type": "code",
		"scope":         "identify guilds",
	}
	for k, v := range want {
		if got := u.Query().Get(k); got != v {
			t.Errorf("AuthCodeURL() %s = %q, want %q", k, got, v)
		}
	}
	if got := u.Query().Get("client_secret"); got != "" {
		t.Errorf("AuthCodeURL() leaks client_secret")
	}
}

func TestCheckHealth(t *testing.T) {
	srv := providertest.NewServer(t)

	if err := newProvider(t, srv.Config()).CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth() error = %v, want nil", err)
	}

	cfg := srv.Config()
	cfg.ClientSecret = ""
	if err := newProvider(t, cfg).CheckHealth(context.Background()); !errors.Is(err, provider.ErrMissingSecret) {
		t.Errorf("CheckHealth() error = %v, want %v", err, provider.ErrMissingSecret)
	}
	if srv.Calls() != 0 {
		t.Errorf("CheckHealth() contacted the provider %d times", srv.Calls())
	}
}
