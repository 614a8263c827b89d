package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/nccc-portal-client/internal/cli"
	"github.com/jrsteele09/nccc-portal-client/internal/config"
	"github.com/jrsteele09/nccc-portal-client/realtime"
	"github.com/jrsteele09/nccc-portal-client/realtime/realtimefake"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

// syncBuffer is a bytes.Buffer safe for the search printer's goroutine.
type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

// backend is a minimal portal API: sign-in, profile, history and the search
// websocket.
type backend struct {
	server *httptest.Server

	lock         sync.Mutex
	history      []map[string]any
	historyAuth  int
	socketTokens []string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] == "expired" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Password has expired"})
			return
		}
		if body["password"] != "secret123" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"user":         map[string]any{"id": "1", "username": "a", "email": body["email"], "role": "user"},
			"accessToken":  "tok1",
			"refreshToken": "ref1",
		}})
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"user": map[string]any{"id": "1", "username": "a", "email": "a@b.com", "role": "user"},
		}})
	})
	mux.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		b.lock.Lock()
		defer b.lock.Unlock()
		if b.historyAuth > 0 {
			writeJSON(w, b.historyAuth, map[string]any{"success": false, "message": "jwt expired"})
			return
		}
		switch r.Method {
		case http.MethodPost:
			var entry map[string]any
			_ = json.NewDecoder(r.Body).Decode(&entry)
			entry["_id"] = "h1"
			entry["createdAt"] = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
			b.history = append(b.history, entry)
			writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": entry})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"history": b.history, "total": len(b.history)}})
		}
	})
	mux.Handle("/ws", websocket.Handler(func(conn *websocket.Conn) {
		b.lock.Lock()
		b.socketTokens = append(b.socketTokens, conn.Request().URL.Query().Get("token"))
		b.lock.Unlock()

		for {
			var in realtime.Message
			if err := websocket.JSON.Receive(conn, &in); err != nil {
				return
			}
			var req realtime.SearchRequest
			_ = in.Decode(&req)
			send := func(eventType realtime.EventType, payload any) {
				msg, _ := realtime.NewMessage(eventType, in.QueryID, payload)
				_ = websocket.JSON.Send(conn, msg)
			}
			send(realtime.EventSearchStart, realtime.Started{Message: "Searching " + req.Query})
			send(realtime.EventSearchResult, map[string]any{"contract": map[string]any{"_id": "c1", "contractNumber": "NCCC-001", "operator": "SEPLAT"}})
			send(realtime.EventSearchResult, map[string]any{"contract": map[string]any{"_id": "c2", "contractNumber": "NCCC-002", "operator": "SEPLAT"}})
			send(realtime.EventSearchComplete, realtime.Complete{Message: "done", Total: 2})
		}
	}))

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) tokens() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.socketTokens...)
}

func (b *backend) recorded() []map[string]any {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]map[string]any(nil), b.history...)
}

// testFixture holds all test dependencies
type testFixture struct {
	backend *backend
	app     *cli.App
	out     *syncBuffer
	errOut  *syncBuffer
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T, options ...cli.AppOption) *testFixture {
	t.Helper()

	f := &testFixture{backend: newBackend(t), out: &syncBuffer{}, errOut: &syncBuffer{}}
	values := config.Defaults()
	values.Env = "TEST"
	values.BaseURL = f.backend.server.URL
	values.StoreBackend = config.StoreMemory
	values.RequestTimeout = 5 * time.Second
	cfg := config.New(values)

	store, err := cli.OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	app, err := cli.New(cfg, store, f.out, f.errOut, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	f.app = app
	return f
}

func (f *testFixture) run(t *testing.T, args ...string) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.app.Run(ctx, args)
}

func TestRun_Usage(t *testing.T) {
	f := setupTestFixture(t)

	require.ErrorIs(t, f.run(t), cli.ErrUsage)
	require.ErrorIs(t, f.run(t, "launch"), cli.ErrUsage)
	require.Contains(t, f.errOut.String(), "signin")
	require.Contains(t, f.errOut.String(), "search")
}

func TestSignInSearchAndHistory(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.run(t, "signin", "-email", "a@b.com", "-password", "secret123"))
	require.Contains(t, f.out.String(), "Signed in as a <a@b.com> (user)")

	require.NoError(t, f.run(t, "whoami"))

	require.NoError(t, f.run(t, "search", "-tab", "contracts", "SEPLAT", "2024"))
	out := f.out.String()
	require.Contains(t, out, "Searching SEPLAT 2024")
	require.Contains(t, out, "NCCC-001")
	require.Contains(t, out, "NCCC-002")
	require.Contains(t, out, "2 results found")

	recorded := f.backend.recorded()
	require.Len(t, recorded, 1)
	require.Equal(t, "SEPLAT 2024", recorded[0]["query"])
	require.Equal(t, "contracts", recorded[0]["tab"])
	require.Equal(t, float64(2), recorded[0]["resultsCount"])
	require.Equal(t, []string{"tok1"}, f.backend.tokens())

	require.NoError(t, f.run(t, "history"))
	require.Contains(t, f.out.String(), "1 searches")

	require.NoError(t, f.run(t, "signout"))
	require.NoError(t, f.run(t, "whoami"))
	require.Contains(t, f.out.String(), "Not signed in")
}

func TestSearch_AnonymousIsNotRecorded(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.run(t, "search", "pipeline"))
	require.Contains(t, f.out.String(), "2 results found")
	require.Empty(t, f.backend.recorded())
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := setupTestFixture(t)
	require.Error(t, f.run(t, "search"))
}

func TestSignIn_Failure(t *testing.T) {
	f := setupTestFixture(t)
	err := f.run(t, "signin", "-email", "a@b.com", "-password", "wrong")
	require.EqualError(t, err, "Invalid email or password")
}

func TestSignIn_UnauthorizedShowsBackendMessage(t *testing.T) {
	f := setupTestFixture(t)
	err := f.run(t, "signin", "-email", "a@b.com", "-password", "expired")
	require.EqualError(t, err, "Password has expired")
	require.NotErrorIs(t, err, cli.ErrSignedOut)
	require.NotContains(t, f.errOut.String(), "ncccctl signin")

	require.NoError(t, f.run(t, "whoami"))
	require.Contains(t, f.out.String(), "Not signed in")
}

func TestRejectedCredentialSignsOut(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.run(t, "signin", "-email", "a@b.com", "-password", "secret123"))

	f.backend.lock.Lock()
	f.backend.historyAuth = http.StatusUnauthorized
	f.backend.lock.Unlock()

	err := f.run(t, "history")
	require.ErrorIs(t, err, cli.ErrSignedOut)
	require.Contains(t, f.errOut.String(), "ncccctl signin")

	require.NoError(t, f.run(t, "whoami"))
	require.Contains(t, f.out.String(), "Not signed in")
}

func TestSignInRotatesLiveChannel(t *testing.T) {
	dialer := realtimefake.NewFakeDialer()
	f := setupTestFixture(t, cli.WithDialer(dialer))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = f.app.Run(ctx, []string{"search", "pipeline"}) }()
	require.Eventually(t, func() bool { return dialer.Dials() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.run(t, "signin", "-email", "a@b.com", "-password", "secret123"))
	require.Equal(t, []string{"", "tok1"}, dialer.Tokens())
	require.True(t, dialer.Conn(0).IsClosed())

	require.NoError(t, f.run(t, "signout"))
	require.True(t, dialer.Conn(1).IsClosed())
}

func TestGoogleURL_NotConfigured(t *testing.T) {
	f := setupTestFixture(t)
	require.Error(t, f.run(t, "google-url"))
}

func TestVerify_RequiresUser(t *testing.T) {
	f := setupTestFixture(t)
	require.ErrorIs(t, f.run(t, "verify"), cli.ErrUsage)
	require.ErrorIs(t, f.run(t, "verify", "-bogus"), cli.ErrUsage)
}
