package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	user, err := CreateUser("Jordan Dev", "jordan@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, "Jordan Dev", user.Name)
	assert.Equal(t, "jordan@example.com", user.Email)
	assert.Equal(t, ROLE_USER, user.Role)
	assert.Equal(t, STATUS_ACTIVE, user.Status)
	assert.NotEqual(t, "secret123", user.Password)
	assert.True(t, CheckPasswordHash("secret123", user.Password))
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{name: "short name", username: "ab", email: "a@example.com", password: "secret123"},
		{name: "invalid email", username: "Jordan", email: "not-an-email", password: "secret123"},
		{name: "short password", username: "Jordan", email: "a@example.com", password: "123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser(tt.username, tt.email, tt.password)
			assert.Error(t, err)
		})
	}
}

func TestCheckPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong horse", hash))
	assert.False(t, CheckPasswordHash("correct horse", "not-a-bcrypt-hash"))
}

func TestGenerateAPIKey(t *testing.T) {
	user := &User{}

	key, err := user.GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "cf_"))
	assert.Len(t, key, 3+48)
	assert.Equal(t, HashAPIKey(key), user.APIKeyHash)
	require.NotNil(t, user.APIKeyCreatedAt)

	// Rotation replaces the hash; the old key stops matching.
	oldHash := user.APIKeyHash
	newKey, err := user.GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, newKey)
	assert.NotEqual(t, oldHash, user.APIKeyHash)
}

func TestHashAPIKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, HashAPIKey("cf_abc"), HashAPIKey("cf_abc"))
	assert.NotEqual(t, HashAPIKey("cf_abc"), HashAPIKey("cf_abd"))
	assert.Len(t, HashAPIKey("anything"), 64)
}
