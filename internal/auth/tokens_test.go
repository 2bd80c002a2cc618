package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Generate("analyst", []string{"admin"})
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "analyst", claims.Subject)
	assert.Equal(t, []string{"admin"}, claims.Roles)
	assert.Equal(t, "copilot", claims.Issuer)
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Generate("analyst", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestValidateExpired(t *testing.T) {
	token, err := NewTokenManager("test-secret", -time.Minute).Generate("analyst", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("test-secret", -time.Minute).Validate(token)
	assert.Error(t, err)
}

func TestValidateGarbage(t *testing.T) {
	_, err := NewTokenManager("test-secret", time.Hour).Validate("not-a-token")
	assert.Error(t, err)
}
