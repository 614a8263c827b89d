package credentials

import (
	"context"
	"encoding/json"
	"io"

	"github.com/jrsteele09/nccc-portal-client/internal/errors"
	"github.com/jrsteele09/nccc-portal-client/users"
	"github.com/rs/zerolog/log"
)

// KV is the durable key/value surface a Store persists to. Get reports
// ok=false for a missing key; that is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenSource is the read-only view of the store used by the request gateway
// and the channel manager.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// Store persists the credential and the cached user profile. There is no
// cache in front of the backend: every read goes to the KV so writes are
// visible to all holders of the Store immediately.
type Store struct {
	kv KV
}

var _ TokenSource = (*Store)(nil)

// NewStore creates a Store over kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// AccessToken returns the stored access token or "" when none is stored or
// the backend cannot be read.
func (s *Store) AccessToken(ctx context.Context) string {
	value, ok, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		log.Err(err).Msg("Credential store: failed to read access token")
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

// Credential returns the stored credential. ok is false when no access
// token is stored, regardless of the refresh entry.
func (s *Store) Credential(ctx context.Context) (Credential, bool) {
	access := s.AccessToken(ctx)
	if access == "" {
		return Credential{}, false
	}

	refresh, _, err := s.kv.Get(ctx, KeyRefreshToken)
	if err != nil {
		log.Err(err).Msg("Credential store: failed to read refresh token")
		refresh = ""
	}
	return Credential{AccessToken: access, RefreshToken: refresh}, true
}

// Profile returns the cached user profile. A missing or corrupt entry yields
// ok=false and leaves the tokens untouched.
func (s *Store) Profile(ctx context.Context) (*users.Profile, bool) {
	value, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		log.Err(err).Msg("Credential store: failed to read cached profile")
		return nil, false
	}
	if !ok || value == "" {
		return nil, false
	}

	var profile users.Profile
	if err := json.Unmarshal([]byte(value), &profile); err != nil {
		log.Warn().Err(err).Msg("Credential store: cached profile is unreadable, ignoring it")
		return nil, false
	}
	return &profile, true
}

// Set stores cred and, when non-nil, profile. An empty refresh token removes
// any stored refresh entry so a credential never mixes two sign-ins.
func (s *Store) Set(ctx context.Context, cred Credential, profile *users.Profile) error {
	if !cred.Present() {
		return errors.Wrapf(errors.ErrInvalidInput, "credential store set: access token is required")
	}
	if err := s.kv.Set(ctx, KeyAccessToken, cred.AccessToken); err != nil {
		return errors.Wrapf(err, "credential store set %s", KeyAccessToken)
	}
	if cred.RefreshToken == "" {
		if err := s.kv.Delete(ctx, KeyRefreshToken); err != nil {
			return errors.Wrapf(err, "credential store delete %s", KeyRefreshToken)
		}
	} else if err := s.kv.Set(ctx, KeyRefreshToken, cred.RefreshToken); err != nil {
		return errors.Wrapf(err, "credential store set %s", KeyRefreshToken)
	}
	if profile != nil {
		return s.SetProfile(ctx, *profile)
	}
	return nil
}

// SetProfile replaces the cached profile only.
func (s *Store) SetProfile(ctx context.Context, profile users.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrapf(err, "credential store encode profile")
	}
	if err := s.kv.Set(ctx, KeyUser, string(data)); err != nil {
		return errors.Wrapf(err, "credential store set %s", KeyUser)
	}
	return nil
}

// Clear removes all three entries.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUser); err != nil {
		return errors.Wrapf(err, "credential store clear")
	}
	return nil
}

// Close releases the backend when it holds resources.
func (s *Store) Close() error {
	if c, ok := s.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
