// Package common holds the response envelope and middleware shared by handlers
package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wrale/oauth2-login-callback/internal/login"
)

// SuccessEnvelope is returned with 200 when a login completes
type SuccessEnvelope struct {
	OK     bool          `json:"ok"`
	User   login.User    `json:"user"`
	Guilds []login.Guild `json:"guilds"`
	Token  login.Token   `json:"token"`
}

// ErrorEnvelope is returned for every failed request
type ErrorEnvelope struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// encodeFailure is written when an envelope cannot be encoded
var encodeFailure = []byte(`{"ok":false,"error":"Internal server error","details":"failed to encode response"}`)

// SetJSONHeaders sets the headers every JSON response carries
func SetJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
}

// WriteJSON encodes v before writing anything, so an encoding failure can
// still be reported with a clean 500
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		WriteJSONError(w, err)
		return
	}

	SetJSONHeaders(w)
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// WriteJSONError reports a failure to encode a response
func WriteJSONError(w http.ResponseWriter, err error) {
	SetJSONHeaders(w)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(encodeFailure)
}

// WriteSuccess writes the success envelope for r
func WriteSuccess(w http.ResponseWriter, r *login.Result) {
	guilds := r.Guilds
	if guilds == nil {
		guilds = []login.Guild{}
	}
	WriteJSON(w, http.StatusOK, SuccessEnvelope{
		OK:     true,
		User:   r.User,
		Guilds: guilds,
		Token:  r.Token,
	})
}

// WriteFailure writes the error envelope for err. Errors that are not a
// *login.Error are reported as InternalError.
func WriteFailure(w http.ResponseWriter, err error) {
	var lerr *login.Error
	if !errors.As(err, &lerr) {
		lerr = login.Internal(err)
	}
	WriteJSON(w, lerr.Status, ErrorEnvelope{
		OK:      false,
		Error:   lerr.Message,
		Details: lerr.Details,
	})
}
