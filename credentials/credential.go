package credentials

// Storage keys. Each is an independent entry so an unreadable profile does
// not invalidate the tokens and vice versa.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Credential is the access/refresh token pair issued by the backend.
type Credential struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Present reports whether the credential can authorize a request. A refresh
// token on its own never counts.
func (c Credential) Present() bool {
	return c.AccessToken != ""
}

// BearerHeader returns the Authorization header value, or "" when no access
// token is present.
func (c Credential) BearerHeader() string {
	if !c.Present() {
		return ""
	}
	return "Bearer " + c.AccessToken
}
