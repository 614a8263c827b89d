package sessions

import (
	"github.com/google/uuid"
	"github.com/jrsteele09/nccc-portal-client/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleConfig enables the Google sign-in entry point. The backend completes
// the code exchange; the client only builds the consent URL and forwards the
// returned code.
type GoogleConfig struct {
	ClientID    string
	RedirectURL string
	Scopes      []string
}

// WithGoogle enables GoogleAuthURL.
func WithGoogle(cfg GoogleConfig) ManagerOption {
	return func(m *Manager) {
		if cfg.ClientID == "" {
			return
		}
		m.google = &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
			Endpoint:    google.Endpoint,
		}
	}
}

// GoogleAuthURL returns the Google consent URL and the state value embedded
// in it. The caller keeps state and compares it with the one echoed back to
// the redirect URL before calling GoogleSignIn.
func (m *Manager) GoogleAuthURL() (authURL, state string, err error) {
	if m.google == nil {
		return "", "", errors.Wrapf(errors.ErrUnsupported, "google sign-in is not configured")
	}
	state = uuid.New().String()
	return m.google.AuthCodeURL(state, oauth2.AccessTypeOffline), state, nil
}
