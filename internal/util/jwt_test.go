package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret-0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, RoleStudent, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, RoleStudent, claims.Role)
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT(1, RoleTeacher, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "some-other-secret")
	assert.Error(t, err)
}

func TestParseJWTRejectsExpired(t *testing.T) {
	token, err := GenerateJWT(1, RoleStudent, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, testSecret)
	assert.Error(t, err)
}
