package realtime

import (
	"context"
	"sync"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Manager owns the process's single Channel. Connect, Reconnect and
// Disconnect are the only ways to change it.
type Manager struct {
	dialer Dialer
	tokens credentials.TokenSource

	lock    sync.Mutex
	current *Channel
}

// NewManager creates a Manager that dials with dialer and authorizes each new
// Channel with the access token tokens holds at dial time.
func NewManager(dialer Dialer, tokens credentials.TokenSource) (*Manager, error) {
	if dialer == nil {
		return nil, errors.New("[NewManager] dialer is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewManager] token source is required")
	}
	return &Manager{dialer: dialer, tokens: tokens}, nil
}

// Connect returns the live Channel, dialing one if there is none or the
// previous one has dropped. Repeated calls return the same Channel for as
// long as it stays live.
func (m *Manager) Connect(ctx context.Context) (*Channel, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.current != nil && m.current.Live() {
		return m.current, nil
	}
	return m.dial(ctx)
}

// Reconnect closes the current Channel, live or not, and dials a new one
// with the token stored now. Call it after the credential changes.
func (m *Manager) Reconnect(ctx context.Context) (*Channel, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.closeCurrent()
	return m.dial(ctx)
}

// Disconnect closes the current Channel, if any.
func (m *Manager) Disconnect() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.closeCurrent()
}

// Current returns the Channel without dialing; nil when there is none.
func (m *Manager) Current() *Channel {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.current
}

func (m *Manager) dial(ctx context.Context) (*Channel, error) {
	token := m.tokens.AccessToken(ctx)
	conn, err := m.dialer.Dial(ctx, token)
	if err != nil {
		m.current = nil
		return nil, errors.Wrap(err, "[Connect] failed to dial realtime channel")
	}
	m.current = newChannel(conn, token)
	log.Info().Str("channel_id", m.current.ID()).Bool("authorized", token != "").Msg("Realtime channel connected")
	return m.current, nil
}

func (m *Manager) closeCurrent() {
	if m.current == nil {
		return
	}
	if err := m.current.Close(); err != nil {
		log.Warn().Err(err).Str("channel_id", m.current.ID()).Msg("Realtime channel close failed")
	}
	log.Info().Str("channel_id", m.current.ID()).Msg("Realtime channel closed")
	m.current = nil
}
