package session

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidTransition = "INVALID_SESSION_TRANSITION"
	TextCodeSessionSuperseded = "SESSION_SUPERSEDED"
	TextCodeInconsistentState = "INCONSISTENT_SESSION_STATE"
	TextCodeNotAuthenticated  = "NOT_AUTHENTICATED"
	TextCodeStorageFailure    = "CREDENTIAL_STORAGE_FAILURE"
	TextCodeNetworkFailure    = "NETWORK_FAILURE"
	TextCodeServerFailure     = "SERVER_FAILURE"
	TextCodeValidationFailure = "VALIDATION_FAILURE"
	TextCodeThrottled         = "REQUEST_THROTTLED"
	TextCodeMalformedResponse = "MALFORMED_RESPONSE"

	// TextCodeOAuthPrefix prefixes the text codes of OAuth completion failures.
	TextCodeOAuthPrefix = "OAUTH_"
)

// Machine readable reasons a backend attaches to a 403 that must end the session.
const (
	ReasonTokenBlacklisted = "TOKEN_BLACKLISTED"
	ReasonUserDeactivated  = "USER_DEACTIVATED"
	ReasonTokenInvalid     = "TOKEN_INVALID"
)

// ErrInvalidTransition is returned when a requested session state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrSessionSuperseded is returned when a network result arrives after the session it
// was started for has been logged out or invalidated.
var ErrSessionSuperseded = goerrors.New("session changed while the request was in flight", goerrors.CategoryConflict).
	WithTextCode(TextCodeSessionSuperseded).
	WithCode(goerrors.CodeConflict)

// ErrInconsistentState is returned when a transition would leave tokens without a user
// (or the reverse). The manager logs out instead of committing such a state.
var ErrInconsistentState = goerrors.New("session requires both an access token and a user", goerrors.CategoryInternal).
	WithTextCode(TextCodeInconsistentState).
	WithCode(goerrors.CodeInternal)

// ErrNotAuthenticated is returned by operations that need a loaded session.
var ErrNotAuthenticated = goerrors.New("not authenticated", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrThrottled is returned when a rate limited operation is attempted too soon.
var ErrThrottled = goerrors.New("please wait before trying again", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeThrottled).
	WithCode(http.StatusTooManyRequests)

// ErrMalformedResponse is returned when a 2xx payload cannot be used.
var ErrMalformedResponse = goerrors.New("unexpected response from server", goerrors.CategoryInternal).
	WithTextCode(TextCodeMalformedResponse).
	WithCode(goerrors.CodeInternal)

func storageError(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeStorageFailure)
}

// ErrorKind is the client side error taxonomy surfaced to callers.
type ErrorKind string

const (
	KindNetwork       ErrorKind = "network"
	KindAuthorization ErrorKind = "authorization"
	KindForbidden     ErrorKind = "forbidden"
	KindValidation    ErrorKind = "validation"
	KindServer        ErrorKind = "server"
	KindOAuth         ErrorKind = "oauth"
	KindUnknown       ErrorKind = "unknown"
)

// KindOf classifies err. Errors produced outside this package report KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if strings.HasPrefix(richErr.TextCode, TextCodeOAuthPrefix) {
			return KindOAuth
		}
		switch richErr.TextCode {
		case TextCodeNetworkFailure:
			return KindNetwork
		case TextCodeValidationFailure, TextCodeThrottled:
			return KindValidation
		case TextCodeServerFailure, TextCodeMalformedResponse:
			return KindServer
		}
		switch richErr.Category {
		case goerrors.CategoryAuth:
			return KindAuthorization
		case goerrors.CategoryAuthz:
			return KindForbidden
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return KindValidation
		}
	}

	return KindUnknown
}

// IsAuthorizationFailure reports whether err represents a rejected session.
func IsAuthorizationFailure(err error) bool {
	return KindOf(err) == KindAuthorization
}

func isForcedLogoutReason(code string) bool {
	switch code {
	case ReasonTokenBlacklisted, ReasonUserDeactivated, ReasonTokenInvalid:
		return true
	default:
		return false
	}
}
