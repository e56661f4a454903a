package main

import "time"

// Credential is the opaque token bundle for one Twitch user. It is replaced
// wholesale on refresh, never partially mutated.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// UserIdentity is the Twitch user a credential belongs to. Fetched from the
// platform after code exchange, never created locally.
type UserIdentity struct {
	ID          string
	Login       string
	DisplayName string
}

// StoreEntry is one persisted (userID, credential) pair as returned by
// TokenStore.List.
type StoreEntry struct {
	UserID     string
	Credential *Credential
}
