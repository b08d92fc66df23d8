// Package user defines the account model used for registration, login and
// URL ownership.
package user

// User represents a registered account.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string

	// Email is unique across all users.
	Email string

	// PasswordHash is the bcrypt hash of the password; the plain password is never kept.
	PasswordHash string
}
