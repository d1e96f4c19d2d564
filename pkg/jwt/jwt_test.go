package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnverified(t *testing.T) {
	token, err := GenerateToken("ana", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseUnverified(token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Username())
	assert.False(t, claims.ExpiresWithin(time.Now(), time.Minute))
	assert.True(t, claims.ExpiresWithin(time.Now(), 2*time.Hour))
}

func TestParseUnverified_Invalid(t *testing.T) {
	_, err := ParseUnverified("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = ParseUnverified("not-a-token")
	assert.Error(t, err)
}
