package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/jrsteele09/nccc-portal-client/credentials/storefake"
	"github.com/jrsteele09/nccc-portal-client/gateway"
	internalerrors "github.com/jrsteele09/nccc-portal-client/internal/errors"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server     *httptest.Server
	store      *credentials.Store
	gw         *gateway.Gateway
	redirects  atomic.Int32
	lastAuth   atomic.Value
	lastMethod atomic.Value
}

func setupTestFixture(t *testing.T, handler http.HandlerFunc) *testFixture {
	t.Helper()

	f := &testFixture{store: credentials.NewStore(storefake.NewFakeKV())}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		f.lastMethod.Store(r.Method)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	f.gw = gateway.New(f.server.URL+"/api/v1", f.store,
		gateway.WithRedirector(gateway.RedirectFunc(func(context.Context) { f.redirects.Add(1) })),
	)
	return f
}

func (f *testFixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Set(context.Background(), credentials.Credential{AccessToken: "tok1", RefreshToken: "ref1"}, nil))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGateway_AttachesBearerWhenPresent(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	ctx := context.Background()

	_, err := f.gw.Send(ctx, http.MethodGet, "/contracts", nil)
	require.NoError(t, err)
	require.Equal(t, "", f.lastAuth.Load())

	f.signIn(t)
	_, err = f.gw.Send(ctx, http.MethodGet, "/contracts", nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok1", f.lastAuth.Load())
}

func TestGateway_Unauthorized(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid token"})
	})
	ctx := context.Background()

	t.Run("profile refresh path is exempt", func(t *testing.T) {
		f.signIn(t)
		_, err := f.gw.Send(ctx, http.MethodGet, gateway.ProfileRefreshPath, nil)
		require.Error(t, err)
		require.False(t, errors.Is(err, gateway.ErrAuthInvalid))

		var se *gateway.StatusError
		require.True(t, errors.As(err, &se))
		require.True(t, se.Unauthenticated())
		require.Equal(t, "Invalid token", se.Message)

		require.Equal(t, "tok1", f.store.AccessToken(ctx))
		require.Equal(t, int32(0), f.redirects.Load())
	})

	t.Run("any other path clears and redirects", func(t *testing.T) {
		f.signIn(t)
		_, err := f.gw.Send(ctx, http.MethodGet, "/history?page=1", nil)
		require.ErrorIs(t, err, gateway.ErrAuthInvalid)

		_, ok := f.store.Credential(ctx)
		require.False(t, ok)
		require.Equal(t, int32(1), f.redirects.Load())
	})

	t.Run("registered handler replaces the fallback clear", func(t *testing.T) {
		f.signIn(t)
		var handled string
		f.gw.OnUnauthorized(func(_ context.Context, path string) { handled = path })

		_, err := f.gw.Send(ctx, http.MethodDelete, "/history/42", nil)
		require.ErrorIs(t, err, gateway.ErrAuthInvalid)
		require.Equal(t, "/history/42", handled)
		require.Equal(t, "tok1", f.store.AccessToken(ctx))
		require.Equal(t, int32(2), f.redirects.Load())
	})
}

func TestGateway_ExemptPathExtendsDefaults(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false})
	})
	ctx := context.Background()
	f.signIn(t)
	f.gw.ExemptPath("/auth/profile")

	for _, path := range []string{"/auth/profile", gateway.ProfileRefreshPath} {
		_, err := f.gw.Send(ctx, http.MethodGet, path, nil)
		require.Error(t, err)
		require.False(t, errors.Is(err, gateway.ErrAuthInvalid), path)
	}
	require.Equal(t, "tok1", f.store.AccessToken(ctx))
	require.Equal(t, int32(0), f.redirects.Load())
}

func TestGateway_OtherFailuresSurfaceUnmodified(t *testing.T) {
	var calls atomic.Int32
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "boom"})
	})
	f.signIn(t)

	_, err := f.gw.Send(context.Background(), http.MethodPost, "/contracts", map[string]string{"operator": "SEPLAT"})
	require.Error(t, err)
	require.Equal(t, "boom", gateway.ErrorMessage(err, "fallback"))
	require.Equal(t, int32(1), calls.Load(), "no retry")
	require.Equal(t, "tok1", f.store.AccessToken(context.Background()))
}

func TestGateway_TransportError(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {})
	f.server.Close()

	_, err := f.gw.Send(context.Background(), http.MethodGet, "/auth/me", nil)
	var te *gateway.TransportError
	require.True(t, errors.As(err, &te))
	require.ErrorIs(t, err, internalerrors.ErrTransport)
	require.Equal(t, "fallback", gateway.ErrorMessage(err, "fallback"))
}

func TestCall_DecodesEnvelope(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"echo": body["q"]}})
	})

	env, err := gateway.Call[map[string]string](context.Background(), f.gw, http.MethodPost, "/echo", map[string]string{"q": "SEPLAT"})
	require.NoError(t, err)
	require.True(t, env.Success)
	require.Equal(t, "SEPLAT", env.Data["echo"])
	require.Equal(t, http.MethodPost, f.lastMethod.Load())
}

func TestCall_BadEnvelope(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := gateway.Call[struct{}](context.Background(), f.gw, http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, internalerrors.ErrBadEnvelope)
}
