package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/jrsteele09/nccc-portal-client/gateway"
	"github.com/jrsteele09/nccc-portal-client/token"
	"github.com/jrsteele09/nccc-portal-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Backend routes, relative to the API root.
const (
	RouteSignIn         = "/auth/signin"
	RouteSignUp         = "/auth/signup"
	RouteVerify         = "/auth/verify"
	RouteProfile        = gateway.ProfileRefreshPath
	RouteGoogleCallback = "/auth/google-signin/callback"
)

// User-facing fallbacks when the backend gave no message.
const (
	msgSignInFailed   = "Sign in failed"
	msgSignUpFailed   = "Sign up failed"
	msgGoogleRejected = "Authentication failed"
	msgGoogleFailed   = "Failed to complete authentication"
	msgGoogleNoCode   = "No authorization code received"
	msgVerifyFailed   = "Verification failed"
	msgSessionExpired = "Your session has expired, please sign in again"
)

// StateListener observes every state change.
type StateListener func(State)

// CredentialListener observes credential rotation. cred is empty after a
// logout or an invalidation.
type CredentialListener func(ctx context.Context, cred credentials.Credential)

type authPayload struct {
	User         users.Profile `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

type profilePayload struct {
	User users.Profile `json:"user"`
}

type unauthorizedRegistrar interface {
	OnUnauthorized(gateway.UnauthorizedHandler)
}

type exemptRegistrar interface {
	ExemptPath(path string)
}

// Manager owns the session state and is the only writer of the credential
// store. Transitions are not serialized against each other: two concurrent
// calls both run and the last to finish wins.
type Manager struct {
	transport   gateway.Sender
	store       *credentials.Store
	profilePath string
	google      *oauth2.Config

	lock  sync.RWMutex
	state State

	listenerLock       sync.RWMutex
	onChange           StateListener
	onCredentialChange CredentialListener
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithProfilePath overrides the profile-refresh route. A transport that keeps
// an exempt set (the Gateway does) is told to exempt it as well.
func WithProfilePath(path string) ManagerOption {
	return func(m *Manager) {
		if path != "" {
			m.profilePath = path
		}
	}
}

// NewManager creates a Manager. When transport can report invalidated
// credentials (the Gateway does), the manager registers itself to clear the
// session on those reports.
func NewManager(transport gateway.Sender, store *credentials.Store, options ...ManagerOption) (*Manager, error) {
	if transport == nil {
		return nil, errors.New("[NewManager] transport is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}

	m := &Manager{
		transport:   transport,
		store:       store,
		profilePath: RouteProfile,
	}
	for _, opt := range options {
		opt(m)
	}

	if r, ok := transport.(unauthorizedRegistrar); ok {
		r.OnUnauthorized(m.invalidate)
	}
	if r, ok := transport.(exemptRegistrar); ok {
		r.ExemptPath(m.profilePath)
	}
	return m, nil
}

// OnChange registers the state listener.
func (m *Manager) OnChange(l StateListener) {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()
	m.onChange = l
}

// OnCredentialChange registers the credential rotation listener.
func (m *Manager) OnCredentialChange(l CredentialListener) {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()
	m.onCredentialChange = l
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state.clone()
}

// Authenticated reports whether the current state is signed in.
func (m *Manager) Authenticated() bool {
	return m.Snapshot().Authenticated()
}

// SignIn exchanges email and password for a credential. It makes exactly one
// network call and reports whether the session is now authenticated.
func (m *Manager) SignIn(ctx context.Context, email, password string) bool {
	m.begin()
	env, err := gateway.Call[authPayload](ctx, m.transport, http.MethodPost, RouteSignIn, map[string]string{
		"email":    email,
		"password": password,
	})
	return m.completeAuth(ctx, "SignIn", env, err, msgSignInFailed, msgSignInFailed)
}

// GoogleSignIn completes the Google flow by forwarding the authorization
// code to the backend, which answers with the same payload as SignIn.
func (m *Manager) GoogleSignIn(ctx context.Context, code string) bool {
	m.begin()
	if code == "" {
		m.fail(msgGoogleNoCode)
		return false
	}
	path := RouteGoogleCallback + "?code=" + url.QueryEscape(code)
	env, err := gateway.Call[authPayload](ctx, m.transport, http.MethodGet, path, nil)
	return m.completeAuth(ctx, "GoogleSignIn", env, err, msgGoogleRejected, msgGoogleFailed)
}

// SignUp creates an account. It never authenticates the caller.
func (m *Manager) SignUp(ctx context.Context, req users.SignUpRequest) bool {
	m.begin()
	if err := req.Validate(); err != nil {
		m.fail(err.Error())
		return false
	}
	env, err := gateway.Call[json.RawMessage](ctx, m.transport, http.MethodPost, RouteSignUp, req)
	if err != nil {
		log.Err(errors.Wrap(err, "[SignUp]")).Msg("Sign up request failed")
		m.fail(gateway.ErrorMessage(err, msgSignUpFailed))
		return false
	}
	if !env.Success {
		m.fail(orDefault(env.Message, msgSignUpFailed))
		return false
	}
	m.update(func(s *State) { s.IsLoading = false })
	return true
}

// VerifyAccount confirms an account. Only IsLoading and Error change.
func (m *Manager) VerifyAccount(ctx context.Context, userID string) {
	m.begin()
	env, err := gateway.Call[json.RawMessage](ctx, m.transport, http.MethodPost, RouteVerify, map[string]string{
		"userId": userID,
	})
	if err != nil {
		log.Err(errors.Wrap(err, "[VerifyAccount]")).Str("user_id", userID).Msg("Verification request failed")
		m.fail(gateway.ErrorMessage(err, msgVerifyFailed))
		return
	}
	if !env.Success {
		m.fail(orDefault(env.Message, msgVerifyFailed))
		return
	}
	m.update(func(s *State) { s.IsLoading = false })
}

// FetchProfile reconciles the session with the backend's view of the user.
// Without a stored access token it returns false and leaves state alone.
//
// Failures keep the cached session: network errors, 5xx, unsuccessful
// envelopes and a 401 for a token the client cannot prove expired are all
// treated as ambiguous. Only a 401 for a JWT whose exp has passed clears the
// session.
func (m *Manager) FetchProfile(ctx context.Context) bool {
	cred, ok := m.store.Credential(ctx)
	if !ok {
		return false
	}

	env, err := gateway.Call[profilePayload](ctx, m.transport, http.MethodGet, m.profilePath, nil)
	if err != nil {
		var se *gateway.StatusError
		if errors.As(err, &se) && se.Unauthenticated() && token.ProvablyExpired(cred.AccessToken) {
			log.Info().Msg("Profile refresh: access token expired, clearing session")
			m.clearSession(ctx, msgSessionExpired)
			return false
		}
		log.Warn().Err(err).Msg("Profile refresh failed, keeping cached session")
		return false
	}
	if !env.Success || !env.Data.User.Valid() {
		log.Warn().Str("message", env.Message).Msg("Profile refresh rejected, keeping cached session")
		return false
	}

	// A logout or a new sign-in finished while this call was in flight.
	if m.store.AccessToken(ctx) != cred.AccessToken {
		log.Debug().Msg("Profile refresh: credential changed meanwhile, discarding result")
		return false
	}

	user := env.Data.User
	if err := m.store.SetProfile(ctx, user); err != nil {
		log.Err(err).Msg("Profile refresh: failed to cache profile")
	}
	m.update(func(s *State) {
		s.User = &user
		s.Credential = &cred
	})
	return true
}

// InitializeFromStorage restores a cached session without waiting on the
// network, then reconciles it in the background. The returned channel closes
// once reconciliation is over (immediately when nothing was restored).
func (m *Manager) InitializeFromStorage(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	cred, ok := m.store.Credential(ctx)
	if !ok {
		close(done)
		return done
	}
	user, ok := m.store.Profile(ctx)
	if !ok {
		close(done)
		return done
	}

	m.update(func(s *State) {
		s.User = user
		s.Credential = &cred
	})
	log.Debug().Str("user_id", user.ID).Msg("Session restored from storage")

	go func() {
		defer close(done)
		m.FetchProfile(ctx)
	}()
	return done
}

// Set installs an externally obtained session.
func (m *Manager) Set(ctx context.Context, user users.Profile, cred credentials.Credential) error {
	if err := m.store.Set(ctx, cred, &user); err != nil {
		return errors.Wrap(err, "[Set] failed to store credential")
	}
	m.update(func(s *State) {
		s.User = &user
		s.Credential = &cred
	})
	m.credentialChanged(ctx, cred)
	return nil
}

// Logout clears the store and resets the state. It never fails; a store
// error is logged.
func (m *Manager) Logout(ctx context.Context) {
	m.clearSession(ctx, "")
}

// ClearError resets the error message.
func (m *Manager) ClearError() {
	m.update(func(s *State) { s.Error = "" })
}

// invalidate is the gateway's 401 handler.
func (m *Manager) invalidate(ctx context.Context, path string) {
	log.Info().Str("path", path).Msg("Session invalidated by backend")
	m.clearSession(ctx, "")
}

func (m *Manager) clearSession(ctx context.Context, message string) {
	if err := m.store.Clear(ctx); err != nil {
		log.Err(err).Msg("Failed to clear credential store")
	}
	m.update(func(s *State) {
		*s = State{Error: message}
	})
	m.credentialChanged(ctx, credentials.Credential{})
}

// completeAuth finishes SignIn and GoogleSignIn. A failed attempt leaves the
// session anonymous even if one existed before it, so the user and the stored
// credential are present exactly when the last attempt succeeded.
func (m *Manager) completeAuth(ctx context.Context, op string, env gateway.Envelope[authPayload], err error, rejected, failed string) bool {
	if err != nil {
		log.Err(errors.Wrapf(err, "[%s]", op)).Msg("Authentication request failed")
		m.failAuth(ctx, gateway.ErrorMessage(err, failed))
		return false
	}
	if !env.Success {
		m.failAuth(ctx, orDefault(env.Message, rejected))
		return false
	}

	cred := credentials.Credential{AccessToken: env.Data.AccessToken, RefreshToken: env.Data.RefreshToken}
	user := env.Data.User
	if !cred.Present() || !user.Valid() {
		log.Error().Str("op", op).Msg("Authentication response is missing the user or access token")
		m.failAuth(ctx, failed)
		return false
	}
	if err := m.store.Set(ctx, cred, &user); err != nil {
		log.Err(errors.Wrapf(err, "[%s]", op)).Msg("Failed to persist credential")
		m.failAuth(ctx, failed)
		return false
	}

	m.update(func(s *State) {
		s.User = &user
		s.Credential = &cred
		s.IsLoading = false
	})
	log.Info().Str("user_id", user.ID).Str("op", op).Msg("Signed in")
	m.credentialChanged(ctx, cred)
	return true
}

func (m *Manager) failAuth(ctx context.Context, message string) {
	if _, had := m.store.Credential(ctx); had || m.Snapshot().User != nil {
		m.clearSession(ctx, message)
		return
	}
	m.fail(message)
}

func (m *Manager) begin() {
	m.update(func(s *State) {
		s.IsLoading = true
		s.Error = ""
	})
}

func (m *Manager) fail(message string) {
	m.update(func(s *State) {
		s.IsLoading = false
		s.Error = message
	})
}

func (m *Manager) update(mutate func(*State)) {
	m.lock.Lock()
	mutate(&m.state)
	snapshot := m.state.clone()
	m.lock.Unlock()

	m.listenerLock.RLock()
	l := m.onChange
	m.listenerLock.RUnlock()
	if l != nil {
		l(snapshot)
	}
}

func (m *Manager) credentialChanged(ctx context.Context, cred credentials.Credential) {
	m.listenerLock.RLock()
	l := m.onCredentialChange
	m.listenerLock.RUnlock()
	if l != nil {
		l(ctx, cred)
	}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}
