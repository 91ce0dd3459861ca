package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/infrastructure/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret: "test-secret-key-for-token-verification-only",
		Issuer: "dukapos-auth",
	}
}

func testOperator() identity.Operator {
	return identity.Operator{
		ID:           uuid.New(),
		Role:         identity.RoleManager,
		HomeBranchID: uuid.New(),
	}
}

func TestTokenVerifier_ValidToken(t *testing.T) {
	cfg := testJWTConfig()
	operator := testOperator()

	token, err := SignOperatorToken(cfg, operator, time.Hour)
	require.NoError(t, err)

	verified, err := NewTokenVerifier(cfg).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, operator.ID, verified.ID)
	assert.Equal(t, identity.RoleManager, verified.Role)
	assert.Equal(t, operator.HomeBranchID, verified.HomeBranchID)
}

func TestTokenVerifier_ExpiredToken(t *testing.T) {
	cfg := testJWTConfig()

	token, err := SignOperatorToken(cfg, testOperator(), -time.Minute)
	require.NoError(t, err)

	_, err = NewTokenVerifier(cfg).Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenVerifier_WrongSecret(t *testing.T) {
	token, err := SignOperatorToken(config.JWTConfig{
		Secret: "some-other-secret-nobody-shares-with-us-here",
		Issuer: "dukapos-auth",
	}, testOperator(), time.Hour)
	require.NoError(t, err)

	_, err = NewTokenVerifier(testJWTConfig()).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_WrongIssuer(t *testing.T) {
	token, err := SignOperatorToken(config.JWTConfig{
		Secret: testJWTConfig().Secret,
		Issuer: "some-other-issuer",
	}, testOperator(), time.Hour)
	require.NoError(t, err)

	_, err = NewTokenVerifier(testJWTConfig()).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_UnknownRole(t *testing.T) {
	cfg := testJWTConfig()
	operator := testOperator()
	operator.Role = identity.Role("SUPERVISOR")

	token, err := SignOperatorToken(cfg, operator, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenVerifier(cfg).Verify(token)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestTokenVerifier_MissingBranchClaim(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: string(identity.RoleCashier),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = NewTokenVerifier(cfg).Verify(token)
	assert.ErrorIs(t, err, ErrMissingBranch)
}

func TestTokenVerifier_RejectsUnsignedToken(t *testing.T) {
	cfg := testJWTConfig()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  cfg.Issuer,
			Subject: uuid.New().String(),
		},
		Role: string(identity.RoleAdmin),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenVerifier(cfg).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifier_Garbage(t *testing.T) {
	_, err := NewTokenVerifier(testJWTConfig()).Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
