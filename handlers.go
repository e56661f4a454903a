package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
)

// HandleAuth kicks off the authorization handshake with a redirect to
// Twitch. No query parameters are accepted.
func (a *App) HandleAuth(w http.ResponseWriter, r *http.Request) {
	url, err := a.Flow.BeginAuth()
	if err != nil {
		log.Printf("begin auth: %v", err)
		writePlainError(w, http.StatusInternalServerError, "could not start authorization")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleAuthCallback finishes the handshake. Invalid requests get a 400
// without distinguishing why the state was rejected; downstream failures get
// a 500 with detail kept server-side.
func (a *App) HandleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	identity, err := a.Flow.CompleteAuth(r.Context(), code, state)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingParameter):
			writePlainError(w, http.StatusBadRequest, "missing code or state")
		case errors.Is(err, ErrInvalidState):
			writePlainError(w, http.StatusBadRequest, "invalid or expired authorization request")
		default:
			log.Printf("auth callback: %v", err)
			writePlainError(w, http.StatusInternalServerError, "authorization failed")
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "welcome %s!", identity.DisplayName)
}
