/*
Package backend is the client for the hosted backend-as-a-service platform.

This file covers the REST-like query layer: profile lookups and writes, the
full message history fetch, and message inserts. Filters and ordering use the
backend's querystring dialect (column=eq.value, order=column.direction).
*/
package backend

import (
	"context"
	"net/http"
	"net/url"

	"supachat/internal/app/user"
)

// NewMessage is the insert payload for a chat message. The backend assigns
// the id and creation timestamp; username and avatar are the sender's values
// at this instant, denormalized on purpose.
type NewMessage struct {
	Content   string `json:"content"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// FetchProfile queries the profile row for the given principal id.
// A missing row is not an error: it returns (nil, nil) and the caller applies
// the display-name fallback chain.
func (c *Client) FetchProfile(ctx context.Context, id string) (*user.Profile, error) {
	query := url.Values{
		"id":     []string{"eq." + id},
		"select": []string{"id,username,avatar_url"},
	}

	var rows []user.Profile
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles", query, nil, &rows); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	profile := rows[0]
	return &profile, nil
}

// InsertProfile writes a new profile row keyed by the principal id.
func (c *Client) InsertProfile(ctx context.Context, profile user.Profile) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/profiles", nil, []user.Profile{profile}, nil)
}

// FetchMessages requests every message row ordered by creation time ascending.
// There is no pagination and no limit: the entire history is returned.
func (c *Client) FetchMessages(ctx context.Context) ([]user.Message, error) {
	query := url.Values{
		"select": []string{"*"},
		"order":  []string{"created_at.asc"},
	}

	var rows []user.Message
	if err := c.do(ctx, http.MethodGet, "/rest/v1/messages", query, nil, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}

// InsertMessage inserts one message row. The backend assigns id and created_at.
func (c *Client) InsertMessage(ctx context.Context, msg NewMessage) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/messages", nil, []NewMessage{msg}, nil)
}
