// Package auth holds the credential and session primitives: bcrypt password
// hashing, signed session tokens, server-side session revocation, the HTTP
// middleware that turns a request into a session, and GitHub sign-in.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// UnusablePasswordPrefix marks an account that can only sign in through an
// external provider. No bcrypt hash starts with "!", so Verify always fails.
const UnusablePasswordPrefix = "!"

// ErrPasswordMismatch is returned by Verify when the hash does not match.
var ErrPasswordMismatch = errors.New("auth: invalid password")

type PasswordService struct {
	cost int
}

// NewPasswordService returns a service hashing at cost. Values outside
// bcrypt's accepted range fall back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash returns a salted bcrypt hash. bcrypt only looks at the first 72 bytes,
// so longer inputs are refused instead of being silently truncated.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify compares plaintext against a stored hash in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
