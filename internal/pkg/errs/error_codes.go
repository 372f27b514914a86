/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system failures both inside the
client and in communication with the backend stand-in used by tests.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a request or response body was not valid JSON.
	ErrInvalidJSONFormat = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 3xxx: Authentication Errors (always surfaced to the user)
const (
	// ErrMissingFields indicates that a required credential field was left empty.
	ErrMissingFields = 3001

	// ErrInvalidCredentials indicates that the email/password pair was rejected.
	ErrInvalidCredentials = 3002

	// ErrUserAlreadyExists indicates that an account with the given email already exists.
	ErrUserAlreadyExists = 3003

	// ErrUnauthorized indicates that no authenticated session is present.
	ErrUnauthorized = 3004

	// ErrAuthFailed wraps any other failure during an authentication flow,
	// carrying the underlying message verbatim.
	ErrAuthFailed = 3005
)

// 4xxx: Data Errors (logged only, UI degrades silently)
const (
	// ErrProfileFetchFailed indicates that the profile row lookup failed.
	ErrProfileFetchFailed = 4001

	// ErrProfileWriteFailed indicates that the profile row insert failed.
	ErrProfileWriteFailed = 4002

	// ErrMessageFetchFailed indicates that loading the message history failed.
	ErrMessageFetchFailed = 4003

	// ErrMessageInsertFailed indicates that sending a message failed.
	ErrMessageInsertFailed = 4004

	// ErrSubscribeFailed indicates that the realtime subscription could not be opened.
	ErrSubscribeFailed = 4005

	// ErrNotFound indicates that a requested row does not exist.
	ErrNotFound = 4006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general internal error.
	ErrUnknown = 5000
)
