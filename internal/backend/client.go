/*
Package backend is the client for the hosted backend-as-a-service platform.

The platform owns every hard problem in this system: credential storage and
verification, session issuance, relational persistence, realtime fan-out, and
row-level authorization. This package only speaks its surfaces (the auth
endpoints, the REST-like query layer, and the realtime websocket) and keeps
the current session in memory.
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"supachat/internal/configs"
	"supachat/internal/pkg/errs"
	"supachat/internal/pkg/logx"
)

// Principal is the authenticated identity returned by the backend, distinct
// from the richer User view-model assembled by joining it with profile data.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session holds the access token and principal of the signed-in user.
type Session struct {
	AccessToken string
	Principal   Principal
	ExpiresAt   time.Time
}

// Client talks to the hosted backend. It is safe for concurrent use; the
// session and the session-change listener set are guarded by a mutex.
type Client struct {
	baseURL      string
	anonKey      string
	realtimePath string
	httpClient   *http.Client
	logger       zerolog.Logger

	mu             sync.RWMutex
	session        *Session
	listeners      map[int]func(*Principal)
	nextListenerID int
}

// New constructs a Client from the application configuration.
func New(cfg *configs.AppConfig) *Client {
	clientLogger := logx.Logger().With().
		Str("component", "backend").
		Str("backend_url", cfg.BackendURL).
		Logger()

	return &Client{
		baseURL:      strings.TrimRight(cfg.BackendURL, "/"),
		anonKey:      cfg.AnonKey,
		realtimePath: cfg.RealtimePath,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger:       clientLogger,
		listeners:    make(map[int]func(*Principal)),
	}
}

// apiError is the JSON error body returned by the backend.
type apiError struct {
	Message string `json:"message"`
}

// do executes one JSON request against the backend. Every request carries the
// project API key; authenticated requests additionally carry the session's
// access token as a bearer token. A non-2xx response is decoded into the
// backend's error shape and returned as an error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return c.decodeError(res)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}

// statusError pairs the HTTP status with the backend's error message so
// callers can translate it into the right application error code.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// decodeError reads the error body of a failed response. A body that is not
// the expected JSON shape degrades to the raw HTTP status text.
func (c *Client) decodeError(res *http.Response) error {
	var apiErr apiError

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8192))
	if err == nil && len(raw) > 0 {
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil {
			c.logger.Debug().
				Int("status", res.StatusCode).
				Bytes("body", raw).
				Msg("Backend error body was not valid JSON")
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode)
	}

	return &statusError{Status: res.StatusCode, Message: apiErr.Message}
}

// AccessToken returns the current session's access token, or "" when signed out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// CurrentSession returns a copy of the current session, or nil when signed out.
func (c *Client) CurrentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil
	}
	session := *c.session
	return &session
}

// OnSessionChange registers a listener invoked with the new principal on every
// sign-in and sign-up, and with nil on sign-out. The returned function
// deregisters the listener; callers must pair registration with deregistration
// or the listener leaks for the lifetime of the client.
func (c *Client) OnSessionChange(fn func(*Principal)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// notifySessionChange snapshots the listener set and invokes every listener
// with the new principal state.
func (c *Client) notifySessionChange(p *Principal) {
	c.mu.RLock()
	snapshot := make([]func(*Principal), 0, len(c.listeners))
	for _, fn := range c.listeners {
		snapshot = append(snapshot, fn)
	}
	c.mu.RUnlock()

	for _, fn := range snapshot {
		fn(p)
	}
}

// asAuthError translates a failed auth request into the surfaced error
// taxonomy: duplicate accounts, rejected credentials, or a wrapped message
// for everything else (network failures included).
func asAuthError(err error) *errs.CustomError {
	if se, ok := err.(*statusError); ok {
		switch se.Status {
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return errs.NewError(errs.ErrUserAlreadyExists)
		case http.StatusBadRequest, http.StatusUnauthorized:
			return errs.NewError(errs.ErrInvalidCredentials)
		default:
			return errs.NewError(errs.ErrAuthFailed, se.Message)
		}
	}

	return errs.NewError(errs.ErrAuthFailed, err.Error())
}
