package main

import (
	"context"
	"fmt"
	"log"

	"github.com/nicklaw5/helix/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/twitch"

	cfg "github.com/example/twitchbroker/internal/config"
)

// botScopes is the fixed capability list requested from Twitch. chat:read and
// chat:edit are what the IRC connection needs; nothing else is asked for.
var botScopes = []string{"chat:read", "chat:edit"}

// CodeExchanger trades an authorization code for a credential. The real
// implementation wraps oauth2.Config; tests substitute a stub.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*Credential, error)
}

// UserResolver resolves the identity that owns an access token.
type UserResolver interface {
	ResolveUser(ctx context.Context, accessToken string) (*UserIdentity, error)
}

// AttachFunc promotes an authorized identity to an active bot connection.
type AttachFunc func(identity *UserIdentity, cred *Credential) error

// Flow drives a single instance of the authorization-code handshake:
// redirect out with a one-time state, validate the callback, exchange the
// code, persist the credential, and (for the configured bot user) attach the
// chat bot.
type Flow struct {
	States   *StateRegistry
	Store    TokenStore
	Exchange CodeExchanger
	Users    UserResolver

	BotUser string
	Attach  AttachFunc

	authCodeURL func(state string) string
}

// NewFlow wires the flow against the real Twitch collaborators.
func NewFlow(c *cfg.Config, states *StateRegistry, store TokenStore, attach AttachFunc) *Flow {
	oc := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     twitch.Endpoint,
		RedirectURL:  c.CallbackURL(),
		Scopes:       botScopes,
	}
	return &Flow{
		States:      states,
		Store:       store,
		Exchange:    &oauthExchanger{config: oc},
		Users:       &helixResolver{clientID: c.ClientID},
		BotUser:     c.BotUser,
		Attach:      attach,
		authCodeURL: func(state string) string { return oc.AuthCodeURL(state) },
	}
}

// BeginAuth issues a state nonce and returns the Twitch authorization URL to
// redirect the browser to. No other side effect.
func (f *Flow) BeginAuth() (string, error) {
	state, err := f.States.Issue()
	if err != nil {
		return "", err
	}
	return f.authCodeURL(state), nil
}

// CompleteAuth validates the callback and finishes the handshake. The
// credential is persisted before any bot attachment so a restart can always
// find a cached token for an attached bot; an attach failure is logged but
// never fails the callback.
func (f *Flow) CompleteAuth(ctx context.Context, code, state string) (*UserIdentity, error) {
	if code == "" || state == "" {
		return nil, ErrMissingParameter
	}
	if !f.States.Consume(state) {
		return nil, ErrInvalidState
	}

	cred, err := f.Exchange.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, ErrTokenUnavailable
	}

	identity, err := f.Users.ResolveUser(ctx, cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserLookupFailed, err)
	}

	if err := f.Store.Save(identity.ID, cred); err != nil {
		return nil, fmt.Errorf("persist credential for %s: %w", identity.ID, err)
	}

	if f.Attach != nil && f.BotUser != "" && identity.Login == f.BotUser {
		if err := f.Attach(identity, cred); err != nil {
			log.Printf("bot attach for %s failed: %v", identity.Login, err)
		}
	}

	return identity, nil
}

// oauthExchanger performs the server-to-server code exchange.
type oauthExchanger struct {
	config *oauth2.Config
}

func (e *oauthExchanger) Exchange(ctx context.Context, code string) (*Credential, error) {
	tok, err := e.config.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       e.config.Scopes,
	}, nil
}

// helixResolver looks up the token's owner via the Helix users endpoint. A
// fresh client per call keeps the shared resolver free of mutable token
// state.
type helixResolver struct {
	clientID string
}

func (h *helixResolver) ResolveUser(ctx context.Context, accessToken string) (*UserIdentity, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:        h.clientID,
		UserAccessToken: accessToken,
	})
	if err != nil {
		return nil, err
	}
	resp, err := client.GetUsers(&helix.UsersParams{})
	if err != nil {
		return nil, err
	}
	if resp.ErrorMessage != "" {
		return nil, fmt.Errorf("helix users: %s (%d)", resp.ErrorMessage, resp.StatusCode)
	}
	if len(resp.Data.Users) == 0 {
		return nil, fmt.Errorf("helix users: token owner not found")
	}
	u := resp.Data.Users[0]
	return &UserIdentity{ID: u.ID, Login: u.Login, DisplayName: u.DisplayName}, nil
}
