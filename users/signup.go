package users

import (
	"fmt"
	"net/mail"
	"strings"
)

const minPasswordLength = 8

// SignUpRequest is the account creation payload sent to /auth/signup.
// ConfirmPassword is checked locally and never sent.
type SignUpRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	FirstName       string `json:"firstname,omitempty"`
	LastName        string `json:"lastname,omitempty"`
}

// Validate checks the request the same way the sign-up form does before the
// request leaves the client:
// - email and username are present, email parses
// - password is at least 8 characters long
// - confirmation (when given) matches
func (r SignUpRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("a valid email is required")
	}
	if r.ConfirmPassword != "" && r.Password != r.ConfirmPassword {
		return fmt.Errorf("passwords do not match")
	}
	if len(r.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	return nil
}
