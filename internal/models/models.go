// Package models holds the data shapes shared between the storage, service
// and router layers of the URL shortener, together with the sentinel errors
// those layers use to talk to each other.
package models

import (
	"errors"
	"time"
)

// URLRecord is a single short-id -> long URL mapping owned by a user.
type URLRecord struct {
	ShortID   string    `json:"-"`
	LongURL   string    `json:"longURL" validate:"required,http_url"`
	OwnerID   string    `json:"userID"`
	CreatedAt time.Time `json:"-"`
}

// URLsDump is the shape of the `/urls.json` response: every record keyed by its short id.
type URLsDump map[string]URLRecord

// InternalStatsResponse is returned by the trusted-subnet stats endpoint.
type InternalStatsResponse struct {
	URLs  int64 `json:"urls"`
	Users int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

var (
	// ErrNotFound is returned when no URL record exists for a short id.
	ErrNotFound = errors.New("the short URL is not found")

	// ErrShortIDTaken is returned by a store when a create would overwrite an existing record.
	ErrShortIDTaken = errors.New("the short id is already taken")

	// ErrShortIDExhausted means every attempt to generate a free short id collided.
	ErrShortIDExhausted = errors.New("the number of attempts to generate a unique short id has been exceeded")

	ErrUserNotFound = errors.New("the user is not found")

	// ErrEmptyCredentials is the validation error for an empty email or password.
	ErrEmptyCredentials = errors.New("email and password must not be empty")

	ErrEmailTaken    = errors.New("a user with this email is already registered")
	ErrEmailNotFound = errors.New("no user is registered with this email")
	ErrWrongPassword = errors.New("the password is wrong")

	// ErrMustBeLoggedIn is the policy denial for anonymous callers.
	ErrMustBeLoggedIn = errors.New("you must be logged in")

	// ErrForbidden is the policy denial for callers that do not own the record.
	ErrForbidden = errors.New("the URL does not belong to you")

	ErrInvalidURL = errors.New("the long URL is not a valid http(s) URL")
)
