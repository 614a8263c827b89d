package users

import (
	"fmt"
	"strings"
)

// Role is the portal role carried on a user profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile is the user record returned by the backend on sign-in and by the
// profile-refresh endpoint. It is cached next to the credential so a restart
// can render the signed-in user before any network round trip.
type Profile struct {
	ID       string `json:"id"`               // Backend user identifier
	Username string `json:"username"`         // Display/user name
	Email    string `json:"email"`            // Sign-in email
	Avatar   string `json:"avatar,omitempty"` // Optional avatar URL
	Role     Role   `json:"role"`             // user | admin
}

// IsAdmin returns true if the profile carries the admin role
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Valid reports whether the profile has the minimum fields needed to render
// an authenticated session.
func (p *Profile) Valid() bool {
	return p != nil && strings.TrimSpace(p.ID) != ""
}

// String renders "username <email> [role]" for CLI output.
func (p *Profile) String() string {
	if p == nil {
		return "anonymous"
	}
	return fmt.Sprintf("%s <%s> [%s]", p.Username, p.Email, p.Role)
}
