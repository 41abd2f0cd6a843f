package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate(t *testing.T) {
	hash, err := HashPIN("4821")
	require.NoError(t, err)

	tests := []struct {
		name     string
		gate     *Gate
		pin      string
		expected bool
	}{
		{name: "correct pin", gate: NewGate(hash), pin: "4821", expected: true},
		{name: "surrounding space ignored", gate: NewGate(hash + "\n"), pin: " 4821 ", expected: true},
		{name: "wrong pin", gate: NewGate(hash), pin: "1111", expected: false},
		{name: "empty pin", gate: NewGate(hash), pin: "", expected: false},
		{name: "open gate", gate: NewGate(""), pin: "", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.gate.Check(tt.pin))
		})
	}
}

func TestHashPINRejectsShortPins(t *testing.T) {
	_, err := HashPIN("12")
	assert.Error(t, err)
	assert.True(t, NewGate("  ").Open())
}
