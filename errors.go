package main

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Authorization flow failures. The callback handler maps these to HTTP
// statuses; everything else is treated as an internal error.
var (
	ErrMissingParameter = errors.New("missing code or state parameter")
	// ErrInvalidState covers unknown, expired and replayed state alike; the
	// three cases must stay indistinguishable to the caller.
	ErrInvalidState     = errors.New("invalid or expired state")
	ErrExchangeFailed   = errors.New("code exchange failed")
	ErrTokenUnavailable = errors.New("no token returned by exchange")
	ErrUserLookupFailed = errors.New("user lookup failed")
)

// APIError represents a structured API error response
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
	Details string `json:"details,omitempty"`
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Code:    code,
		Message: message,
	})
}

// writePlainError writes a plain-text error response. The OAuth callback is
// rendered in a browser tab, so it gets text rather than JSON.
func writePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}
