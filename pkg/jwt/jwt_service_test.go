package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodgram-backend/domain"
)

func TestTokenUserRoundTrip(t *testing.T) {
	service := NewJWTService()

	token := service.GenerateTokenUser("3f8a2c1e-0000-0000-0000-000000000001", domain.RoleUser)
	require.NotEmpty(t, token)

	userID, role, err := service.GetUserIDByToken(token)
	require.NoError(t, err)
	assert.Equal(t, "3f8a2c1e-0000-0000-0000-000000000001", userID)
	assert.Equal(t, domain.RoleUser, role)
}

func TestTokenUserInvalid(t *testing.T) {
	service := NewJWTService()

	_, _, err := service.GetUserIDByToken("not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	token := service.GenerateTokenUser("user", domain.RoleUser)
	_, _, err = service.GetUserIDByToken(token + "tampered")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenResetPasswordRoundTrip(t *testing.T) {
	service := NewJWTService()

	token, err := service.GenerateTokenResetPassword(
		map[string]any{"user_id": "some-user"},
		time.Minute*15,
	)
	require.NoError(t, err)

	claims, err := service.ValidateTokenResetPassword(token)
	require.NoError(t, err)
	assert.Equal(t, "some-user", claims["user_id"])
}

func TestTokenResetPasswordExpired(t *testing.T) {
	service := NewJWTService()

	token, err := service.GenerateTokenResetPassword(
		map[string]any{"user_id": "some-user"},
		-time.Minute,
	)
	require.NoError(t, err)

	_, err = service.ValidateTokenResetPassword(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}
