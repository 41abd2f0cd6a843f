// Package auth implements the local PIN gate in front of the wizard.
package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Gate compares PINs against a bcrypt hash. A gate without a hash is open.
type Gate struct {
	hash []byte
}

func NewGate(hash string) *Gate {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return &Gate{}
	}
	return &Gate{hash: []byte(hash)}
}

// Open reports whether any PIN is accepted
func (g *Gate) Open() bool {
	return len(g.hash) == 0
}

func (g *Gate) Check(pin string) bool {
	if g.Open() {
		return true
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(strings.TrimSpace(pin))) == nil
}

// HashPIN returns the bcrypt hash to store as pin_hash
func HashPIN(pin string) (string, error) {
	pin = strings.TrimSpace(pin)
	if len(pin) < 4 {
		return "", fmt.Errorf("PIN must have at least 4 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}
