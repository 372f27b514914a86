/*
Package backendtest is an in-process stand-in for the hosted backend platform.

This file implements the REST-like query layer over the in-memory rows:
profile select/insert and message select/insert. Filters use the backend's
querystring dialect (column=eq.value, order=column.direction). Message
inserts assign the id and timestamp server-side and publish the row to the
feed hub.
*/
package backendtest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"supachat/internal/app/user"
)

// handleSelectProfiles returns profile rows, optionally filtered by id=eq.<id>.
func (s *Server) handleSelectProfiles(w http.ResponseWriter, r *http.Request) {
	idFilter := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")

	s.mu.Lock()
	if s.failNextProfileSelect {
		s.failNextProfileSelect = false
		s.mu.Unlock()
		respondError(w, http.StatusInternalServerError, "injected profile select failure")
		return
	}
	rows := make([]user.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if idFilter != "" && p.ID != idFilter {
			continue
		}
		rows = append(rows, p)
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	respondJSON(w, http.StatusOK, rows)
}

// FailNextProfileInsert makes the next profile insert fail with a server
// error. Tests use it to exercise the partial-failure path where the account
// exists but the profile write did not happen.
func (s *Server) FailNextProfileInsert() {
	s.mu.Lock()
	s.failNextProfileInsert = true
	s.mu.Unlock()
}

// FailNextProfileSelect makes the next profile select fail with a server
// error. Tests use it to exercise the path where a profile read fails rather
// than coming back empty.
func (s *Server) FailNextProfileSelect() {
	s.mu.Lock()
	s.failNextProfileSelect = true
	s.mu.Unlock()
}

// handleInsertProfiles writes new profile rows. Writes require an
// authenticated principal, matching the hosted platform's row-level rules.
func (s *Server) handleInsertProfiles(w http.ResponseWriter, r *http.Request) {
	if s.authenticate(r) == nil {
		respondError(w, http.StatusUnauthorized, "Row-level security: authentication required")
		return
	}

	s.mu.Lock()
	if s.failNextProfileInsert {
		s.failNextProfileInsert = false
		s.mu.Unlock()
		respondError(w, http.StatusInternalServerError, "injected profile insert failure")
		return
	}
	s.mu.Unlock()

	var rows []user.Profile
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	for _, p := range rows {
		if p.ID == "" {
			s.mu.Unlock()
			respondError(w, http.StatusBadRequest, "Profile id is required")
			return
		}
		if _, exists := s.profiles[p.ID]; exists {
			s.mu.Unlock()
			respondError(w, http.StatusConflict, "duplicate key value violates unique constraint \"profiles_pkey\"")
			return
		}
		s.profiles[p.ID] = p
	}
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

// handleSelectMessages returns every message row. Only ascending creation
// order is supported, which is also the storage order.
func (s *Server) handleSelectMessages(w http.ResponseWriter, r *http.Request) {
	order := r.URL.Query().Get("order")
	if order != "" && order != "created_at.asc" {
		respondError(w, http.StatusBadRequest, "Unsupported order clause: "+order)
		return
	}

	s.mu.Lock()
	rows := make([]user.Message, len(s.messages))
	copy(rows, s.messages)
	s.mu.Unlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	respondJSON(w, http.StatusOK, rows)
}

// handleInsertMessages appends message rows, assigning each a monotonically
// increasing id and a server timestamp, then publishes them to the feed hub.
func (s *Server) handleInsertMessages(w http.ResponseWriter, r *http.Request) {
	if s.authenticate(r) == nil {
		respondError(w, http.StatusUnauthorized, "Row-level security: authentication required")
		return
	}

	var rows []user.Message
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inserted := make([]user.Message, 0, len(rows))

	s.mu.Lock()
	for _, m := range rows {
		s.nextMessageID++
		m.ID = s.nextMessageID
		m.CreatedAt = time.Now().UTC()
		s.messages = append(s.messages, m)
		inserted = append(inserted, m)
	}
	s.mu.Unlock()

	for _, m := range inserted {
		record, err := json.Marshal(m)
		if err != nil {
			s.logger.Error().Err(err).Int64("message_id", m.ID).Msg("Failed to encode inserted row")
			continue
		}
		s.hub.publish("messages", record)
	}

	w.WriteHeader(http.StatusCreated)
}

// SeedMessage inserts a message row directly, bypassing auth. Tests use it to
// arrange history without driving the full client flow.
func (s *Server) SeedMessage(content, userID, username string, createdAt time.Time) user.Message {
	s.mu.Lock()
	s.nextMessageID++
	m := user.Message{
		ID:        s.nextMessageID,
		Content:   content,
		UserID:    userID,
		Username:  username,
		CreatedAt: createdAt.UTC(),
	}
	s.messages = append(s.messages, m)
	s.mu.Unlock()

	return m
}

// SeedProfile inserts a profile row directly, bypassing auth.
func (s *Server) SeedProfile(p user.Profile) {
	s.mu.Lock()
	s.profiles[p.ID] = p
	s.mu.Unlock()
}

// Messages returns a copy of the stored message rows in insertion order.
func (s *Server) Messages() []user.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]user.Message, len(s.messages))
	copy(rows, s.messages)
	return rows
}

// Profile returns the stored profile row for the given id, if any.
func (s *Server) Profile(id string) (user.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	return p, ok
}
