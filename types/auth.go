package types

import "time"

// AuthResponse is returned by the backend on successful login or registration.
type AuthResponse struct {
	// Token is the bearer credential for subsequent requests.
	Token string `json:"token"`

	// Username echoes the authenticated account name.
	Username string `json:"username"`

	// Role is the account role as reported by the backend ("user", "admin").
	Role string `json:"role"`
}

// Claims holds the identity data read from a token payload.
// The values are not verified and are only used for display and routing.
type Claims struct {
	// Subject is the "sub" claim, normally the username.
	Subject string `json:"sub"`

	// UserID is the numeric "id" claim used to scope file requests.
	UserID int64 `json:"id"`

	// Role is the "role" claim.
	Role string `json:"role"`

	// ExpiresAt is the "exp" claim, nil when the token carries no expiry.
	ExpiresAt *time.Time `json:"exp,omitempty"`

	// Raw keeps every claim as decoded from the payload.
	Raw map[string]any `json:"-"`
}
