// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxLength is the longest input bcrypt consumes; longer input would be
// silently truncated.
const maxLength = 72

var (
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	ErrInvalidCost     = errors.New("bcrypt cost out of range")
)

// Hasher turns plaintext passwords into salted one-way hashes.
type Hasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A mismatch is not an
	// error; only a malformed hash is.
	Verify(plaintext, hash string) (bool, error)
}

// Bcrypt is a Hasher with a fixed work factor.
type Bcrypt struct {
	cost int
}

func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return &Bcrypt{cost: cost}, nil
}

func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (b *Bcrypt) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify password: %w", err)
	}
}
