/*
Package backend is the client for the hosted backend-as-a-service platform.

This file covers the authentication surface: account creation, credential
verification, sign-out, and resolution of the currently authenticated
principal. Session state transitions fan out to the listeners registered via
OnSessionChange.
*/
package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"supachat/internal/pkg/authtoken"
	"supachat/internal/pkg/errs"
)

// signUpRequest is the account-creation body. Metadata travels in the same
// request so the backend can store the chosen display name with the identity.
type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the token payload returned by signup and password-grant.
type sessionResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        Principal `json:"user"`
}

// SignUp requests account creation from the backend and establishes a session
// for the new principal. The username travels as identity metadata; the
// profile row itself is written separately by the caller.
func (c *Client) SignUp(ctx context.Context, email, password, username string) (*Principal, *errs.CustomError) {
	body := signUpRequest{
		Email:    email,
		Password: password,
	}
	if username != "" {
		body.Data = map[string]any{"username": username}
	}

	var res sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &res); err != nil {
		c.logger.Warn().Err(err).Str("email", email).Msg("Sign-up rejected by backend")
		return nil, asAuthError(err)
	}

	c.storeSession(res)

	principal := res.User
	return &principal, nil
}

// SignIn requests credential verification from the backend and establishes a
// session on success.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Principal, *errs.CustomError) {
	query := url.Values{"grant_type": []string{"password"}}
	body := passwordGrantRequest{Email: email, Password: password}

	var res sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, body, &res); err != nil {
		c.logger.Warn().Err(err).Str("email", email).Msg("Sign-in rejected by backend")
		return nil, asAuthError(err)
	}

	c.storeSession(res)

	principal := res.User
	return &principal, nil
}

// SignOut revokes the session on the backend and clears it locally. The local
// session is cleared even when the revocation call fails, so the client never
// stays signed in against the user's intent.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Backend sign-out call failed, clearing local session anyway")
	}

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	c.notifySessionChange(nil)

	return err
}

// CurrentUser asks the backend for the currently authenticated principal.
// Without a local session it returns nil without a network call. A 401
// response means the session is no longer valid: it is cleared and nil is
// returned rather than an error.
func (c *Client) CurrentUser(ctx context.Context) (*Principal, error) {
	if c.AccessToken() == "" {
		return nil, nil
	}

	var principal Principal
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &principal); err != nil {
		if se, ok := err.(*statusError); ok && se.Status == http.StatusUnauthorized {
			c.logger.Info().Msg("Stored session is no longer valid, clearing it")

			c.mu.Lock()
			c.session = nil
			c.mu.Unlock()

			return nil, nil
		}
		return nil, err
	}

	return &principal, nil
}

// storeSession records the session returned by an auth endpoint and notifies
// the session-change listeners. The token expiry is read from the JWT claims;
// a token that cannot be decoded still yields a usable session with a
// conservative one-hour expiry.
func (c *Client) storeSession(res sessionResponse) {
	expiresAt := time.Now().Add(authtoken.AccessTokenExpiration)

	if claims, err := authtoken.ParseUnverified(res.AccessToken); err != nil {
		c.logger.Warn().Err(err).Msg("Could not decode access token claims, using default expiry")
	} else if claims.ExpiresAt > 0 {
		expiresAt = time.Unix(claims.ExpiresAt, 0)
	}

	c.mu.Lock()
	c.session = &Session{
		AccessToken: res.AccessToken,
		Principal:   res.User,
		ExpiresAt:   expiresAt,
	}
	principal := c.session.Principal
	c.mu.Unlock()

	c.notifySessionChange(&principal)
}
