package authtoken

import "github.com/golang-jwt/jwt"

// Claims defines the access-token payload issued by the backend.
// Beyond the standard JWT fields it carries the principal identity the
// client needs to resolve a session without an extra round trip.
type Claims struct {
	// StandardClaims embeds the standard JWT fields such as Exp (Expiration),
	// Iat (Issued At), Iss (Issuer), and Sub (the principal id).
	jwt.StandardClaims

	// Email is the address the account was registered with.
	Email string `json:"email,omitempty"`

	// Role is the backend role the token was issued under (e.g. "authenticated").
	Role string `json:"role,omitempty"`
}
