package oauth

import (
	goerrors "github.com/goliatone/go-errors"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

const (
	TextCodeProviderError   = session.TextCodeOAuthPrefix + "PROVIDER_ERROR"
	TextCodeInvalidCallback = session.TextCodeOAuthPrefix + "INVALID_RESPONSE"
	TextCodeCompletion      = session.TextCodeOAuthPrefix + "COMPLETION_FAILED"
	TextCodeInvalidProvider = session.TextCodeOAuthPrefix + "INVALID_PROVIDER"
)

// ErrProviderError is returned when the provider redirected back with an error code.
var ErrProviderError = goerrors.New("sign-in provider reported an error", goerrors.CategoryAuth).
	WithTextCode(TextCodeProviderError).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCallback is returned when a success redirect lacks a required field.
var ErrInvalidCallback = goerrors.New("invalid response from sign-in provider", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidCallback).
	WithCode(goerrors.CodeBadRequest)

// ErrCompletionFailed is returned when the session could not be established.
var ErrCompletionFailed = goerrors.New("sign-in could not be completed", goerrors.CategoryInternal).
	WithTextCode(TextCodeCompletion).
	WithCode(goerrors.CodeInternal)

// ErrInvalidProvider is returned by BeginURL for an unusable provider name.
var ErrInvalidProvider = goerrors.New("unknown sign-in provider", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidProvider).
	WithCode(goerrors.CodeBadRequest)
