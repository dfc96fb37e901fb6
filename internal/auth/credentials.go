package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier decides how passwords are stored and compared. Stores
// call Hash before persisting and Verify during FindByCredentials.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(stored, password string) bool
}

// PlaintextVerifier stores passwords as given and compares them for equality.
// It exists for compatibility with existing plaintext user data.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Hash(password string) (string, error) { return password, nil }

func (PlaintextVerifier) Verify(stored, password string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

type BcryptVerifier struct {
	Cost int
}

func (v BcryptVerifier) Hash(password string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (BcryptVerifier) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// NewCredentialVerifier maps a configuration value to a verifier.
func NewCredentialVerifier(mode string) (CredentialVerifier, error) {
	switch mode {
	case "", "plaintext":
		return PlaintextVerifier{}, nil
	case "bcrypt":
		return BcryptVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown credential mode %q", mode)
	}
}
