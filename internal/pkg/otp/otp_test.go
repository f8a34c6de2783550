package otp

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	reSixDigits = regexp.MustCompile(`^[0-9]{6}$`)
	reHex32     = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

func TestIssue_Format(t *testing.T) {
	g := NewGenerator(6)
	id, code, err := g.Issue()
	require.NoError(t, err)
	assert.Regexp(t, reHex32, id)
	assert.Regexp(t, reSixDigits, code)
}

func TestCode_ZeroValueUsesDefaultLength(t *testing.T) {
	code, err := (&Generator{}).Code()
	require.NoError(t, err)
	assert.Len(t, code, DefaultDigits)
}

func TestCode_CustomLengthIsZeroPadded(t *testing.T) {
	g := NewGenerator(8)
	for i := 0; i < 200; i++ {
		code, err := g.Code()
		require.NoError(t, err)
		require.Len(t, code, 8)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewSessionID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate session id %s", id)
		seen[id] = struct{}{}
	}
}

func TestHashAndMatch(t *testing.T) {
	h, err := Hash("482913", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotContains(t, h, "482913")
	assert.True(t, Match(h, "482913"))
	assert.False(t, Match(h, "482914"))
	assert.False(t, Match("not-a-hash", "482913"))
}
