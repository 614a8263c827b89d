package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// ProfileRefreshPath is exempt by default: a 401 from the profile refresh
// reports a stale cached profile, not an invalidated session.
const ProfileRefreshPath = "/auth/me"

// Redirector sends the user back to the sign-in entry point after the
// backend rejected their credential.
type Redirector interface {
	RedirectToSignIn(ctx context.Context)
}

// RedirectFunc adapts a function to a Redirector.
type RedirectFunc func(ctx context.Context)

func (f RedirectFunc) RedirectToSignIn(ctx context.Context) {
	f(ctx)
}

// UnauthorizedHandler is invoked when a non-exempt call answers 401. The
// session manager registers one that clears the store and resets its state.
type UnauthorizedHandler func(ctx context.Context, path string)

type clearer interface {
	Clear(ctx context.Context) error
}

// Response is a 2xx response, or the response attached to a StatusError.
type Response struct {
	Status int
	Body   []byte
}

// Gateway performs REST calls against the backend, attaching the stored
// access token and detecting credential invalidation.
type Gateway struct {
	baseURL     string
	httpClient  *http.Client
	tokens      credentials.TokenSource
	redirector  Redirector
	logRequests bool

	handlerLock    sync.RWMutex
	exempt         map[string]struct{}
	onUnauthorized UnauthorizedHandler
}

var _ Sender = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.httpClient.Timeout = d
		}
	}
}

// WithExemptPaths replaces the set of paths whose 401 must not invalidate the
// session. Defaults to the profile-refresh path.
func WithExemptPaths(paths ...string) Option {
	return func(g *Gateway) {
		g.exempt = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			g.exempt[p] = struct{}{}
		}
	}
}

// WithRedirector sets the sign-in redirect hook.
func WithRedirector(r Redirector) Option {
	return func(g *Gateway) {
		g.redirector = r
	}
}

// WithRequestLogging enables the coloured debug request log.
func WithRequestLogging(enabled bool) Option {
	return func(g *Gateway) {
		g.logRequests = enabled
	}
}

// New creates a Gateway resolving paths against baseURL (e.g.
// "https://host/api/v1").
func New(baseURL string, tokens credentials.TokenSource, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		exempt:     map[string]struct{}{ProfileRefreshPath: {}},
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// OnUnauthorized registers the invalidation handler.
func (g *Gateway) OnUnauthorized(h UnauthorizedHandler) {
	g.handlerLock.Lock()
	defer g.handlerLock.Unlock()
	g.onUnauthorized = h
}

// ExemptPath adds path to the set whose 401 must not invalidate the session.
func (g *Gateway) ExemptPath(path string) {
	g.handlerLock.Lock()
	defer g.handlerLock.Unlock()
	g.exempt[path] = struct{}{}
}

// Send performs one request. body, when non-nil, is JSON encoded. There is no
// retry: transport failures return *TransportError, non-2xx responses return
// *StatusError together with the response.
func (g *Gateway) Send(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Method: method, Path: path, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.tokens != nil {
		if header := (credentials.Credential{AccessToken: g.tokens.AccessToken(ctx)}).BearerHeader(); header != "" {
			req.Header.Set("Authorization", header)
		}
	}

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		g.log(method, path, 0)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		g.log(method, path, httpResp.StatusCode)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	g.log(method, path, httpResp.StatusCode)

	resp := &Response{Status: httpResp.StatusCode, Body: data}
	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return resp, nil
	}

	statusErr := &StatusError{
		Method:  method,
		Path:    path,
		Status:  httpResp.StatusCode,
		Message: envelopeMessage(data),
	}
	if httpResp.StatusCode == http.StatusUnauthorized && !g.isExempt(path) {
		statusErr.authInvalid = true
		g.invalidate(ctx, path)
	}
	return resp, statusErr
}

func (g *Gateway) isExempt(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	g.handlerLock.RLock()
	defer g.handlerLock.RUnlock()
	_, ok := g.exempt[path]
	return ok
}

func (g *Gateway) invalidate(ctx context.Context, path string) {
	log.Warn().Str("path", path).Msg("Gateway: credential rejected, signing out")

	g.handlerLock.RLock()
	h := g.onUnauthorized
	g.handlerLock.RUnlock()

	switch {
	case h != nil:
		h(ctx, path)
	default:
		if c, ok := g.tokens.(clearer); ok {
			if err := c.Clear(ctx); err != nil {
				log.Err(err).Msg("Gateway: failed to clear credential store")
			}
		}
	}

	if g.redirector != nil {
		g.redirector.RedirectToSignIn(ctx)
	}
}

func (g *Gateway) log(method, path string, status int) {
	if g.logRequests {
		logRequest(method, path, status)
	}
}
