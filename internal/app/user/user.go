/*
Package user contains the core data structures shared across the client.

It defines the User view-model assembled from an authenticated principal and
its profile row, the persisted Profile, and the chat Message, together with
the display-name fallback rules applied throughout the application.
*/
package user

import (
	"strings"
	"time"
)

// AnonymousName is the fixed placeholder used when neither a profile username
// nor an email address is available for a user.
const AnonymousName = "anonymous"

// User represents the signed-in user as seen by the UI. It joins the backend
// identity with the profile row and is held only in transient state: it is
// rebuilt on every session resolution and discarded on sign-out.
type User struct {
	// ID is the opaque, stable identifier issued by the backend.
	ID string `json:"id"`

	// Email is the address the account was created with, if any.
	Email string `json:"email,omitempty"`

	// Username is the display name after the fallback chain has been applied.
	Username string `json:"username"`

	// AvatarURL is the optional avatar image location.
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Profile is the persisted display metadata row keyed by the principal id.
// It is decoupled from the authentication identity so it can be edited
// independently of credentials.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Message is a single chat message row. Username and AvatarURL are denormalized
// copies of the sender's profile captured at send time; later profile edits do
// not retroactively update historical messages.
type Message struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName resolves a display name from a profile username and an email
// address. The fallback chain is: profile username, then the local part of
// the email, then the AnonymousName placeholder.
func DisplayName(profileName, email string) string {
	if profileName != "" {
		return profileName
	}

	if email != "" {
		at := strings.Index(email, "@")
		if at < 0 {
			return email
		}
		if local := email[:at]; local != "" {
			return local
		}
	}

	return AnonymousName
}
