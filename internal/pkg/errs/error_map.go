/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize error handling and the HTTP responses of the backend stand-in.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application
// error code. The key is the error code (int), and the value contains the user
// message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 3xxx: Authentication Errors
	ErrMissingFields:      {Code: ErrMissingFields, Message: "Please fill in all required fields.", Status: http.StatusBadRequest},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect email or password.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "An account with this email already exists.", Status: http.StatusConflict},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrAuthFailed:         {Code: ErrAuthFailed, Message: "Authentication failed: %s", Status: http.StatusBadRequest},

	// 4xxx: Data Errors
	ErrProfileFetchFailed:  {Code: ErrProfileFetchFailed, Message: "Could not load profile."},
	ErrProfileWriteFailed:  {Code: ErrProfileWriteFailed, Message: "Could not save profile."},
	ErrMessageFetchFailed:  {Code: ErrMessageFetchFailed, Message: "Could not load messages."},
	ErrMessageInsertFailed: {Code: ErrMessageInsertFailed, Message: "Could not send message."},
	ErrSubscribeFailed:     {Code: ErrSubscribeFailed, Message: "Could not open realtime channel."},
	ErrNotFound:            {Code: ErrNotFound, Message: "Not found.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
