/*
Package authtoken handles the JWT access tokens exchanged with the backend.

The hosted platform issues tokens; the client only inspects them (expiry,
principal id) and the in-process backend stand-in signs them for tests.
*/
package authtoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// AccessTokenExpiration defines the lifetime of an issued access token.
	AccessTokenExpiration = 1 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "supachat-backend"

	// RoleAuthenticated is the role claim carried by signed-in principals.
	RoleAuthenticated = "authenticated"
)

// Generate creates and signs a new access token for the given principal id
// and email. It is used by the backend stand-in when issuing sessions.
func Generate(subject, email, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		Email: email,
		Role:  RoleAuthenticated,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// Parse validates the token signature and expiry using the provided secretKey
// and returns the claims.
func Parse(tokenString, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}

// ParseUnverified decodes the claims without checking the signature.
// The client uses this to read the principal id and expiry out of a token it
// received from the backend; verification is the server's responsibility.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}

	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("token carries no subject claim")
	}

	return claims, nil
}
