package login

import (
	"fmt"
	"net/http"
)

// Kind classifies a failed login
type Kind string

const (
	KindMissingCode             Kind = "MissingCode"
	KindServerMisconfigured     Kind = "ServerMisconfigured"
	KindUpstreamUnreachable     Kind = "UpstreamUnreachable"
	KindUpstreamInvalidResponse Kind = "UpstreamInvalidResponse"
	KindTokenExchangeFailed     Kind = "TokenExchangeFailed"
	KindTokenExchangeIncomplete Kind = "TokenExchangeIncomplete"
	KindProfileFetchFailed      Kind = "ProfileFetchFailed"
	KindProfileInvalid          Kind = "ProfileInvalid"
	KindInternal                Kind = "InternalError"
)

// Error is a login failure ready to be reported to the caller. Message is
// human readable; Details carries the upstream payload or an error string.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package-level errors below
// work as sentinels with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// One error per failure kind, carrying the default status and message
var (
	ErrMissingCode = &Error{
		Kind:    KindMissingCode,
		Status:  http.StatusBadRequest,
		Message: "Missing OAuth2 code. Provide ?code= from Discord redirect.",
	}
	ErrServerMisconfigured = &Error{
		Kind:    KindServerMisconfigured,
		Status:  http.StatusInternalServerError,
		Message: "Server misconfiguration: DISCORD_CLIENT_SECRET not set.",
	}
	ErrUpstreamUnreachable = &Error{
		Kind:    KindUpstreamUnreachable,
		Status:  http.StatusBadGateway,
		Message: "Network error while contacting Discord.",
	}
	ErrUpstreamInvalidResponse = &Error{
		Kind:    KindUpstreamInvalidResponse,
		Status:  http.StatusBadGateway,
		Message: "Invalid response from token endpoint.",
	}
	ErrTokenExchangeFailed = &Error{
		Kind:    KindTokenExchangeFailed,
		Status:  http.StatusBadGateway,
		Message: "Token exchange failed",
	}
	ErrTokenExchangeIncomplete = &Error{
		Kind:    KindTokenExchangeIncomplete,
		Status:  http.StatusBadGateway,
		Message: "Token exchange did not return access_token",
	}
	ErrProfileFetchFailed = &Error{
		Kind:    KindProfileFetchFailed,
		Status:  http.StatusBadGateway,
		Message: "Failed to fetch user from Discord",
	}
	ErrProfileInvalid = &Error{
		Kind:    KindProfileInvalid,
		Status:  http.StatusBadGateway,
		Message: "Invalid user data from Discord",
	}
	ErrInternal = &Error{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
	}
)

// newError copies a sentinel and attaches details and cause
func newError(base *Error, details any, err error) *Error {
	e := *base
	e.Details = details
	e.Err = err
	return &e
}

// Internal wraps an unexpected error as InternalError
func Internal(err error) *Error {
	return newError(ErrInternal, err.Error(), err)
}
