package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/priorauth/internal/config"
	"github.com/careloop/priorauth/internal/domain"
)

func testManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "priorauth-api",
	})
}

func testClaims() *domain.Claims {
	return &domain.Claims{
		UserID: uuid.New(),
		Email:  "dana@careloop.io",
		Name:   "Dana Whitfield",
		Role:   domain.RoleCaseManager,
	}
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := testManager(15 * time.Minute)
	in := testClaims()

	pair, err := m.GenerateTokenPair(in)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	out, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.Email, out.Email)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, domain.RoleCaseManager, out.Role)

	out, err = m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
}

func TestTokenTypeMismatch(t *testing.T) {
	m := testManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestExpiredToken(t *testing.T) {
	m := testManager(-1 * time.Minute)

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTamperedToken(t *testing.T) {
	m := testManager(15 * time.Minute)

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"
	_, err = m.ValidateAccessToken(tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestWrongSecretRejected(t *testing.T) {
	m := testManager(15 * time.Minute)
	other := NewJWTManager(config.JWTConfig{
		Secret:          "a-completely-different-signing-key!!",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "priorauth-api",
	})

	pair, err := m.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestWrongIssuerRejected(t *testing.T) {
	other := NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "someone-else",
	})

	pair, err := other.GenerateTokenPair(testClaims())
	require.NoError(t, err)

	_, err = testManager(15 * time.Minute).ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
