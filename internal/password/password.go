// Package password hashes and verifies user passwords with bcrypt.
// Every Hash call uses a fresh random salt, so equal passwords produce
// different hashes. Passwords are reduced to a base64 SHA-256 digest before
// bcrypt sees them, so any length is accepted and every byte counts.
package password

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Compare when the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// Hasher hashes passwords with a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// New returns a Hasher. A cost outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

func digest(password string) []byte {
	sum := sha256.Sum256([]byte(password))

	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// Hash returns the bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(digest(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("in internal/password/password.go/Hash(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	return string(hashed), nil
}

// Compare checks the password against a hash produced by Hash.
func (h *Hasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), digest(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("in internal/password/password.go/Compare(): error while `bcrypt.CompareHashAndPassword()` calling: %w", err)
	}

	return nil
}
