package sessions

import (
	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/jrsteele09/nccc-portal-client/users"
)

// State is the client session as the UI sees it. A zero State is the
// anonymous session.
type State struct {
	User       *users.Profile          // nil when anonymous
	Credential *credentials.Credential // nil when anonymous
	IsLoading  bool                    // a transition that can change user/credential/error is in flight
	Error      string                  // user-facing message of the last failed transition, "" for none
}

// Authenticated reports whether the state carries both a user and a usable
// credential.
func (s State) Authenticated() bool {
	return s.User != nil && s.Credential != nil && s.Credential.Present()
}

// clone copies the pointed-to values so callers cannot mutate the manager's
// state through a snapshot.
func (s State) clone() State {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Credential != nil {
		c := *s.Credential
		out.Credential = &c
	}
	return out
}
