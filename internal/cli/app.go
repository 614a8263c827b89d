package cli

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/jrsteele09/nccc-portal-client/credentials/filestore"
	"github.com/jrsteele09/nccc-portal-client/credentials/redisstore"
	"github.com/jrsteele09/nccc-portal-client/credentials/sqlitestore"
	"github.com/jrsteele09/nccc-portal-client/credentials/storefake"
	"github.com/jrsteele09/nccc-portal-client/gateway"
	"github.com/jrsteele09/nccc-portal-client/history"
	"github.com/jrsteele09/nccc-portal-client/internal/config"
	"github.com/jrsteele09/nccc-portal-client/realtime"
	"github.com/jrsteele09/nccc-portal-client/search"
	"github.com/jrsteele09/nccc-portal-client/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrSignedOut is returned when the backend rejected the stored credential
// during a command.
var ErrSignedOut = errors.New("signed out, run `ncccctl signin`")

// App wires the client components for one CLI invocation.
type App struct {
	cfg      config.Config
	store    *credentials.Store
	gateway  *gateway.Gateway
	sessions *sessions.Manager
	channels *realtime.Manager
	searches *search.Controller
	history  *history.Client

	out       io.Writer
	errOut    io.Writer
	signedOut atomic.Bool
	signingIn atomic.Bool
}

// AppOption defines a function type to modify the App instance.
type AppOption func(*appOptions)

type appOptions struct {
	dialer realtime.Dialer
}

// WithDialer replaces the websocket dialer.
func WithDialer(d realtime.Dialer) AppOption {
	return func(o *appOptions) {
		o.dialer = d
	}
}

// OpenStore opens the credential store on the configured backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (*credentials.Store, error) {
	switch cfg.GetStoreBackend() {
	case config.StoreFile:
		kv, err := filestore.Open(cfg.GetDataFolder())
		if err != nil {
			return nil, err
		}
		return credentials.NewStore(kv), nil
	case config.StoreRedis:
		kv, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
			Prefix:   cfg.GetRedisPrefix(),
		})
		if err != nil {
			return nil, err
		}
		return credentials.NewStore(kv), nil
	case config.StoreSQLite:
		kv, err := sqlitestore.Open(cfg.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		return credentials.NewStore(kv), nil
	case config.StoreMemory:
		return credentials.NewStore(storefake.NewFakeKV()), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.GetStoreBackend())
	}
}

// New builds the App over store. The App takes ownership of store.
func New(cfg config.Config, store *credentials.Store, out, errOut io.Writer, options ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, errors.New("[New] config is required")
	}
	if store == nil {
		return nil, errors.New("[New] credential store is required")
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	opts := appOptions{
		dialer: &realtime.WebsocketDialer{URL: cfg.GetSocketURL(), Origin: cfg.GetSocketOrigin()},
	}
	for _, opt := range options {
		opt(&opts)
	}

	a := &App{cfg: cfg, store: store, out: out, errOut: errOut}

	profilePath := cfg.GetProfileRefreshPath()
	a.gateway = gateway.New(cfg.GetAPIURL(), store,
		gateway.WithTimeout(cfg.GetRequestTimeout()),
		gateway.WithExemptPaths(profilePath),
		gateway.WithRedirector(gateway.RedirectFunc(a.redirectToSignIn)),
		gateway.WithRequestLogging(cfg.GetEnv() == "DEV"),
	)

	var err error
	a.sessions, err = sessions.NewManager(a.gateway, store,
		sessions.WithProfilePath(profilePath),
		sessions.WithGoogle(sessions.GoogleConfig{
			ClientID:    cfg.GetGoogleClientID(),
			RedirectURL: cfg.GetGoogleRedirectURL(),
			Scopes:      cfg.GetGoogleScopes(),
		}),
	)
	if err != nil {
		return nil, err
	}

	a.channels, err = realtime.NewManager(opts.dialer, store)
	if err != nil {
		return nil, err
	}
	a.sessions.OnCredentialChange(a.credentialChanged)

	a.searches, err = search.NewController(a.channels, search.WithIdleTimeout(cfg.GetSearchIdleTimeout()))
	if err != nil {
		return nil, err
	}

	a.history, err = history.NewClient(a.gateway)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close disconnects the channel and releases the store.
func (a *App) Close() error {
	a.channels.Disconnect()
	return a.store.Close()
}

// credentialChanged keeps the channel's authorization in step with the
// session: a new credential gets a new channel, a cleared one closes it.
func (a *App) credentialChanged(ctx context.Context, cred credentials.Credential) {
	if !cred.Present() {
		a.channels.Disconnect()
		return
	}
	if a.channels.Current() == nil {
		return
	}
	if _, err := a.channels.Reconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("Realtime reconnect after sign-in failed")
	}
}

func (a *App) redirectToSignIn(context.Context) {
	if a.signingIn.Load() {
		return
	}
	if a.signedOut.CompareAndSwap(false, true) {
		fmt.Fprintln(a.errOut, ErrSignedOut.Error())
	}
}

// signedOutErr turns err into ErrSignedOut when the backend invalidated the
// session while the command ran.
func (a *App) signedOutErr(err error) error {
	if err != nil && a.signedOut.Load() {
		return ErrSignedOut
	}
	return err
}
