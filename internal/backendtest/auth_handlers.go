/*
Package backendtest is an in-process stand-in for the hosted backend platform.

This file implements the auth endpoints: account creation, the password
grant, logout, and current-principal lookup. Passwords are bcrypt-hashed and
sessions are HS256 JWTs, the same shapes the hosted platform uses.
*/
package backendtest

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"supachat/internal/pkg/authtoken"
)

type signUpInput struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data"`
}

type passwordGrantInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignUp creates an account and responds with a fresh session.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var input signUpInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.Email == "" || !strings.Contains(input.Email, "@") {
		respondError(w, http.StatusBadRequest, "A valid email address is required")
		return
	}

	if utf8.RuneCountInString(input.Password) < 6 {
		respondError(w, http.StatusBadRequest, "Password should be at least 6 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.MinCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	acct := &account{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: hashed,
		Metadata:     input.Data,
	}

	s.mu.Lock()
	if _, exists := s.accountsByEml[input.Email]; exists {
		s.mu.Unlock()
		s.logger.Warn().Str("email", input.Email).Msg("Sign-up conflict: email already registered")
		respondError(w, http.StatusUnprocessableEntity, "User already registered")
		return
	}
	s.accountsByEml[input.Email] = acct
	s.accountsByID[acct.ID] = acct
	s.mu.Unlock()

	s.respondSession(w, acct)
}

// handleToken implements the password grant.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		respondError(w, http.StatusBadRequest, "Unsupported grant type")
		return
	}

	var input passwordGrantInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	s.mu.Lock()
	acct, ok := s.accountsByEml[email]
	s.mu.Unlock()

	if !ok {
		s.logger.Warn().Str("email", email).Msg("Sign-in rejected: unknown email")
		respondError(w, http.StatusBadRequest, "Invalid login credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(input.Password)); err != nil {
		s.logger.Warn().Str("email", email).Msg("Sign-in rejected: password mismatch")
		respondError(w, http.StatusBadRequest, "Invalid login credentials")
		return
	}

	s.respondSession(w, acct)
}

// handleLogout acknowledges session revocation. The stand-in keeps no
// server-side session state beyond the token itself, so there is nothing to
// delete.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleCurrentUser resolves the bearer token into its principal.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	acct := s.authenticate(r)
	if acct == nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":    acct.ID,
		"email": acct.Email,
	})
}

// respondSession issues an access token for the account and writes the
// session payload.
func (s *Server) respondSession(w http.ResponseWriter, acct *account) {
	token, err := authtoken.Generate(acct.ID, acct.Email, jwtSecret, authtoken.AccessTokenExpiration)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign access token")
		respondError(w, http.StatusInternalServerError, "Failed to issue session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user": map[string]string{
			"id":    acct.ID,
			"email": acct.Email,
		},
	})
}

// authenticate resolves the Authorization header into a stored account.
// It returns nil for missing, malformed, unverifiable, or anon-key tokens.
func (s *Server) authenticate(r *http.Request) *account {
	authHeader := r.Header.Get("Authorization")

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == AnonKey {
		return nil
	}

	claims, err := authtoken.Parse(parts[1], jwtSecret)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	acct := s.accountsByID[claims.Subject]
	s.mu.Unlock()

	return acct
}
