package jwt

import "github.com/golang-jwt/jwt"

// Payload is the identity carried by a bearer token issued by the account service.
// The signaling server only verifies it; issuing tokens in production is not its job.
type Payload struct {
	jwt.StandardClaims

	// UserID is the stable id of the authenticated user.
	UserID string `json:"userId"`

	// Email is the account email; it doubles as the display name fallback.
	Email string `json:"email,omitempty"`

	// Role is the account role (e.g. "user", "admin").
	Role string `json:"role,omitempty"`

	// Name is the profile display name, when the issuer includes it.
	Name string `json:"name,omitempty"`
}

// DisplayName returns the name to show in rosters: profile name, then email, then id.
func (p *Payload) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Email != "":
		return p.Email
	default:
		return p.UserID
	}
}
