package otp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultDigits is the OTP length used when a Generator is left zero-valued.
	DefaultDigits = 6
	// sessionIDBytes gives 128 bits of entropy per session id.
	sessionIDBytes = 16
)

// Generator issues session ids and numeric one-time codes from crypto/rand.
// It keeps no state between calls.
type Generator struct {
	Digits int
}

// NewGenerator returns a generator for codes of the given length.
func NewGenerator(digits int) *Generator {
	return &Generator{Digits: digits}
}

// Issue returns a fresh session id and OTP code.
func (g *Generator) Issue() (sessionID, code string, err error) {
	if sessionID, err = NewSessionID(); err != nil {
		return "", "", err
	}
	if code, err = g.Code(); err != nil {
		return "", "", err
	}
	return sessionID, code, nil
}

// Code samples uniformly from 0 .. 10^digits-1, zero-padded.
func (g *Generator) Code() (string, error) {
	digits := g.Digits
	if digits <= 0 {
		digits = DefaultDigits
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// NewSessionID generates a 32-character hex session id.
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash stores a code with bcrypt so session records never hold it in clear.
func Hash(code string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}
	return string(h), nil
}

// Match compares a supplied code against its hash in constant time.
func Match(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
