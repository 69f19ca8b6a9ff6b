// Package password hashes and checks account passwords.  Hashes are bcrypt,
// base64 encoded so they survive YAML and environment variables.
package password

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMismatch = errors.New("invalid password")
	ErrTooLong  = errors.New("password longer than 72 bytes")
)

// FixtureCost is used for plaintext passwords in development catalogs,
// which are hashed on every start.
const FixtureCost = bcrypt.MinCost

func Hash(pw string) (string, error) {
	return HashWithCost(pw, bcrypt.DefaultCost)
}

func HashWithCost(pw string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrTooLong
	} else if err != nil {
		return "", fmt.Errorf("can't hash password: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(hashed), nil
}

// Checker holds one decoded hash.
type Checker struct {
	hash []byte
}

func NewChecker(encoded string) (*Checker, error) {
	hashed, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("can't decode hashed password: %w", err)
	}
	if _, err := bcrypt.Cost(hashed); err != nil {
		return nil, fmt.Errorf("not a bcrypt hash: %w", err)
	}
	return &Checker{hash: hashed}, nil
}

func (ch *Checker) Validate(pw string) error {
	if bcrypt.CompareHashAndPassword(ch.hash, []byte(pw)) != nil {
		return ErrMismatch
	}
	return nil
}
