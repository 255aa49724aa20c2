package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// Discord endpoint paths relative to the API base URL
	tokenPath   = "/oauth2/token"
	profilePath = "/users/@me"
	guildsPath  = "/users/@me/guilds"

	// DefaultTokenType is used when the token response omits token_type
	DefaultTokenType = "Bearer"

	// Per-call timeout when none is configured
	defaultTimeout = 5 * time.Second

	// Upper bound on any provider response body
	maxBodySize = 1 << 20
)

// DiscordProvider performs the code exchange and user lookups against Discord
type DiscordProvider struct {
	client *http.Client
	oauth  *oauth2.Config
	apiURL string
	logger *zap.Logger
}

// NewDiscordProvider creates a provider client. A missing client secret is
// not an error here; it is reported by ExchangeCode and CheckHealth instead.
func NewDiscordProvider(cfg Config, logger *zap.Logger) (*DiscordProvider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("redirect URI is required")
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("API URL is required")
	}
	if cfg.AuthorizeURL == "" {
		return nil, fmt.Errorf("authorize URL is required")
	}

	apiURL := strings.TrimSuffix(cfg.APIURL, "/")
	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DiscordProvider{
		client: &http.Client{Timeout: timeout},
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  apiURL + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL: apiURL,
		logger: logger.With(zap.String("component", "discord")),
	}, nil
}

// AuthCodeURL returns the consent page URL the browser is sent to
func (p *DiscordProvider) AuthCodeURL() string {
	return p.oauth.AuthCodeURL("")
}

// CheckHealth reports whether the provider can be used at all. It only
// inspects configuration; Discord is not contacted.
func (p *DiscordProvider) CheckHealth(ctx context.Context) error {
	if p.oauth.ClientSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

// ExchangeCode trades an authorization code for a token
func (p *DiscordProvider) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	if p.oauth.ClientSecret == "" {
		return nil, &Error{Op: OpToken, Kind: ErrMissingSecret}
	}

	data := url.Values{
		"client_id":     {p.oauth.ClientID},
		"client_secret": {p.oauth.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {p.oauth.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.oauth.Endpoint.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Op: OpToken, Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()
	p.logger.Debug("provider call",
		zap.String("op", string(OpToken)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Op: OpToken, Kind: ErrUnreachable, Status: resp.StatusCode,
			Err: fmt.Errorf("reading token response: %w", err)}
	}

	parsed, err := decodeJSON(body)
	if err != nil {
		return nil, &Error{Op: OpToken, Kind: ErrInvalidResponse, Status: resp.StatusCode, Body: string(body), Err: err}
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &Error{Op: OpToken, Kind: ErrRejected, Status: resp.StatusCode, Body: parsed}
	}

	fields, _ := parsed.(map[string]any)
	token := &Token{
		AccessToken:  stringValue(fields["access_token"]),
		TokenType:    stringValue(fields["token_type"]),
		Scope:        stringValue(fields["scope"]),
		ExpiresIn:    int64Value(fields["expires_in"]),
		RefreshToken: stringValue(fields["refresh_token"]),
	}
	if token.AccessToken == "" {
		return nil, &Error{Op: OpToken, Kind: ErrMissingAccessToken, Status: resp.StatusCode, Body: withoutCredentials(parsed)}
	}

	return token, nil
}

// FetchProfile loads the profile of the user the token belongs to
func (p *DiscordProvider) FetchProfile(ctx context.Context, token *Token) (*User, error) {
	resp, err := p.get(ctx, token, OpProfile, profilePath)
	if err != nil {
		return nil, &Error{Op: OpProfile, Kind: ErrUnreachable, Err: err}
	}
	if !resp.ok() {
		return nil, &Error{Op: OpProfile, Kind: ErrRejected, Status: resp.status, Body: resp.details()}
	}

	fields, _ := resp.json.(map[string]any)
	user := &User{
		ID:            stringValue(fields["id"]),
		Username:      stringValue(fields["username"]),
		Discriminator: stringValue(fields["discriminator"]),
		Avatar:        stringValue(fields["avatar"]),
		Locale:        stringValue(fields["locale"]),
	}
	if user.ID == "" {
		return nil, &Error{Op: OpProfile, Kind: ErrMissingUserID, Status: resp.status, Body: resp.details()}
	}

	return user, nil
}

// FetchGuilds lists the user's guilds. It never fails outright: see GuildsResult.
func (p *DiscordProvider) FetchGuilds(ctx context.Context, token *Token) GuildsResult {
	resp, err := p.get(ctx, token, OpGuilds, guildsPath)
	if err != nil {
		return GuildsDegraded(&Error{Op: OpGuilds, Kind: ErrUnreachable, Err: err})
	}
	if !resp.ok() {
		return GuildsDegraded(&Error{Op: OpGuilds, Kind: ErrRejected, Status: resp.status, Body: resp.details()})
	}

	items, ok := resp.json.([]any)
	if !ok {
		return GuildsDegraded(&Error{Op: OpGuilds, Kind: ErrInvalidResponse, Status: resp.status, Body: resp.details()})
	}

	guilds := make([]Guild, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		guilds = append(guilds, Guild{
			ID:          stringValue(fields["id"]),
			Name:        stringValue(fields["name"]),
			Icon:        stringValue(fields["icon"]),
			Permissions: stringValue(fields["permissions"]),
		})
	}

	return GuildsOK(guilds)
}

// apiResponse is a user endpoint response read as text, then parsed if possible
type apiResponse struct {
	status int
	json   any // nil when the body is empty or not JSON
	raw    string
}

func (r *apiResponse) ok() bool {
	return isSuccess(r.status)
}

// details prefers the parsed body and falls back to the raw text
func (r *apiResponse) details() any {
	if r.json != nil {
		return r.json
	}
	return r.raw
}

// get issues an authenticated GET. The oauth2 transport sets the
// Authorization header from the token type and access token.
func (p *DiscordProvider) get(ctx context.Context, token *Token, op Op, path string) (*apiResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   token.Type(),
	}))
	client.Timeout = p.client.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	p.logger.Debug("provider call",
		zap.String("op", string(op)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}

	r := &apiResponse{status: resp.StatusCode, raw: string(body)}
	if v, err := decodeJSON(body); err == nil {
		r.json = v
	}
	return r, nil
}

// credentialFields are token response fields that never leave the service
// inside error details
var credentialFields = []string{"access_token", "refresh_token", "id_token"}

// withoutCredentials returns a token response body with credentialFields
// removed. The input is not modified.
func withoutCredentials(body any) any {
	fields, ok := body.(map[string]any)
	if !ok {
		return body
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range credentialFields {
		delete(out, k)
	}
	return out
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// decodeJSON parses a whole body, keeping numbers as json.Number so they
// survive a round trip into error details unchanged
func decodeJSON(body []byte) (any, error) {
	if !json.Valid(body) {
		return nil, errors.New("body is not valid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	return v, nil
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func int64Value(input any) int64 {
	switch v := input.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
