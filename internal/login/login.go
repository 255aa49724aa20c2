// Package login turns an authorization code into the user, guild and token
// data returned by the login callback.
//
// A login runs strictly forward: exchange the code, fetch the profile, then
// fetch the guild list. The first two stages are fatal on failure; the guild
// lookup is best effort and degrades to an empty list.
package login

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wrale/oauth2-login-callback/internal/provider"
)

// Provider is the identity provider a login talks to
type Provider interface {
	ExchangeCode(ctx context.Context, code string) (*provider.Token, error)
	FetchProfile(ctx context.Context, token *provider.Token) (*provider.User, error)
	FetchGuilds(ctx context.Context, token *provider.Token) provider.GuildsResult
	CheckHealth(ctx context.Context) error
}

// Service runs the login pipeline. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	provider Provider
	logger   *zap.Logger
}

// NewService creates a login service backed by p
func NewService(p Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: p,
		logger:   logger.With(zap.String("component", "login")),
	}
}

// Login completes the callback for code. Every returned error is an *Error.
func (s *Service) Login(ctx context.Context, code string) (*Result, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, s.fail("token exchange failed", err)
	}

	user, err := s.provider.FetchProfile(ctx, token)
	if err != nil {
		return nil, s.fail("profile fetch failed", err)
	}

	guilds := s.provider.FetchGuilds(ctx, token)
	if err := guilds.Err(); err != nil {
		s.logger.Warn("guild lookup degraded to empty list",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	return newResult(token, user, guilds.List()), nil
}

// CheckHealth reports whether logins can currently succeed
func (s *Service) CheckHealth(ctx context.Context) error {
	return s.provider.CheckHealth(ctx)
}

// fail classifies and logs a fatal stage error. Details are not logged since
// token responses may carry credentials.
func (s *Service) fail(msg string, err error) *Error {
	lerr := classify(err)
	s.logger.Error(msg,
		zap.String("kind", string(lerr.Kind)),
		zap.Int("status", lerr.Status),
		zap.Error(err))
	return lerr
}

func classify(err error) *Error {
	var perr *provider.Error
	if !errors.As(err, &perr) {
		return Internal(err)
	}

	switch {
	case errors.Is(perr.Kind, provider.ErrMissingSecret):
		return newError(ErrServerMisconfigured, nil, err)

	case errors.Is(perr.Kind, provider.ErrUnreachable):
		details := perr.Error()
		if perr.Err != nil {
			details = perr.Err.Error()
		}
		return newError(ErrUpstreamUnreachable, details, err)

	case errors.Is(perr.Kind, provider.ErrInvalidResponse):
		return newError(ErrUpstreamInvalidResponse, perr.Body, err)

	case errors.Is(perr.Kind, provider.ErrRejected) && perr.Op == provider.OpToken:
		lerr := newError(ErrTokenExchangeFailed, perr.Body, err)
		if perr.Status >= http.StatusBadRequest {
			lerr.Status = perr.Status
		}
		return lerr

	case errors.Is(perr.Kind, provider.ErrRejected):
		return newError(ErrProfileFetchFailed, perr.Body, err)

	case errors.Is(perr.Kind, provider.ErrMissingAccessToken):
		return newError(ErrTokenExchangeIncomplete, perr.Body, err)

	case errors.Is(perr.Kind, provider.ErrMissingUserID):
		return newError(ErrProfileInvalid, perr.Body, err)
	}

	return Internal(err)
}
