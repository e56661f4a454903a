package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, ex CodeExchanger, res UserResolver) (*App, *Flow) {
	t.Helper()
	flow, _ := newTestFlow(t, ex, res)
	return &App{Store: flow.Store, Flow: flow}, flow
}

func TestHandleAuthRedirects(t *testing.T) {
	app, _ := newTestApp(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/twitch/auth", nil)
	rec := httptest.NewRecorder()
	app.HandleAuth(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "client-123", loc.Query().Get("client_id"))
	require.NotEmpty(t, loc.Query().Get("state"))
}

func TestHandleAuthCallbackSuccess(t *testing.T) {
	ex := &stubExchanger{cred: &Credential{AccessToken: "X"}}
	res := &stubResolver{identity: &UserIdentity{ID: "42", Login: "viewer", DisplayName: "Viewer"}}
	app, flow := newTestApp(t, ex, res)

	state, err := flow.States.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/twitch/auth-callback?code=abc&state="+state, nil)
	rec := httptest.NewRecorder()
	app.HandleAuthCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "welcome Viewer!", rec.Body.String())
}

func TestHandleAuthCallbackMissingParams(t *testing.T) {
	app, _ := newTestApp(t, &stubExchanger{}, &stubResolver{})

	for _, target := range []string{
		"/twitch/auth-callback",
		"/twitch/auth-callback?code=abc",
		"/twitch/auth-callback?state=xyz",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		app.HandleAuthCallback(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandleAuthCallbackInvalidState(t *testing.T) {
	ex := &stubExchanger{cred: &Credential{AccessToken: "X"}}
	app, _ := newTestApp(t, ex, &stubResolver{identity: &UserIdentity{ID: "42"}})

	req := httptest.NewRequest(http.MethodGet, "/twitch/auth-callback?code=abc&state=bogus", nil)
	rec := httptest.NewRecorder()
	app.HandleAuthCallback(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, ex.calls)
	// the body must not reveal why the state was rejected
	require.Equal(t, "invalid or expired authorization request", rec.Body.String())
}

func TestHandleAuthCallbackExchangeFailure(t *testing.T) {
	ex := &stubExchanger{err: errors.New("twitch is down")}
	app, flow := newTestApp(t, ex, &stubResolver{identity: &UserIdentity{ID: "42"}})

	state, err := flow.States.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/twitch/auth-callback?code=abc&state="+state, nil)
	rec := httptest.NewRecorder()
	app.HandleAuthCallback(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "twitch is down", "detail stays server-side")
}

func TestRateLimitMiddleware(t *testing.T) {
	app, _ := newTestApp(t, nil, nil)
	app.rateLimiter = NewRateLimiter(2)

	handler := app.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/twitch/auth", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/twitch/auth", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a different client is unaffected
	req = httptest.NewRequest(http.MethodGet, "/twitch/auth", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
