// Package provider integrates with the Discord OAuth2 token endpoint and the
// user REST endpoints reached with the resulting bearer token.
package provider

import (
	"errors"
	"fmt"
	"time"
)

// Failure kinds reported through Error.Kind
var (
	ErrMissingSecret      = errors.New("client secret not configured")
	ErrUnreachable        = errors.New("oauth provider unreachable")
	ErrInvalidResponse    = errors.New("invalid provider response")
	ErrRejected           = errors.New("provider rejected request")
	ErrMissingAccessToken = errors.New("token response missing access_token")
	ErrMissingUserID      = errors.New("user profile missing id")
)

// Op names the provider call that failed
type Op string

const (
	OpToken   Op = "token"
	OpProfile Op = "profile"
	OpGuilds  Op = "guilds"
)

// Error describes a failed provider call. Body holds the decoded JSON body
// when there was one, otherwise the raw response text.
type Error struct {
	Op     Op
	Kind   error
	Status int
	Body   any
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the failure kind and the underlying cause to errors.Is
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Token is the token endpoint response
type Token struct {
	AccessToken  string
	TokenType    string
	Scope        string
	ExpiresIn    int64
	RefreshToken string
}

// Type returns the authorization scheme, defaulting to Bearer
func (t *Token) Type() string {
	if t.TokenType == "" {
		return DefaultTokenType
	}
	return t.TokenType
}

// User is the subset of the /users/@me profile this service uses.
// Empty Avatar and Locale mean the provider sent null or omitted them.
type User struct {
	ID            string
	Username      string
	Discriminator string
	Avatar        string
	Locale        string
}

// Guild is one entry of /users/@me/guilds
type Guild struct {
	ID          string
	Name        string
	Icon        string
	Permissions string
}

// GuildsResult is the outcome of a best-effort guild lookup. Every failure
// variant collapses into an empty list; the cause is kept for logging only.
type GuildsResult struct {
	guilds []Guild
	err    error
}

// List returns the guilds, or an empty non-nil slice if the lookup failed
func (r GuildsResult) List() []Guild {
	if r.err != nil || r.guilds == nil {
		return []Guild{}
	}
	return r.guilds
}

// Err reports why the lookup degraded, or nil
func (r GuildsResult) Err() error {
	return r.err
}

// GuildsOK wraps a successful lookup
func GuildsOK(guilds []Guild) GuildsResult {
	return GuildsResult{guilds: guilds}
}

// GuildsDegraded wraps a failed lookup
func GuildsDegraded(err error) GuildsResult {
	return GuildsResult{err: err}
}

// Config holds Discord application settings
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIURL       string
	AuthorizeURL string
	Scopes       []string
	Timeout      time.Duration
}
