package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordercast/internal/core/domain"
)

func TestTokenService_RoundTripCarriesRole(t *testing.T) {
	svc := NewTokenService(testLogger(), "s3cret", time.Hour)

	tok, err := svc.GenerateToken("staff-7", domain.RoleAdmin)
	require.NoError(t, err)

	id, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "staff-7", id.Subject)
	assert.Equal(t, domain.RoleAdmin, id.Role)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	ours := NewTokenService(testLogger(), "s3cret", time.Hour)
	theirs := NewTokenService(testLogger(), "other", time.Hour)

	tok, err := theirs.GenerateToken("x", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = ours.ValidateToken(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService(testLogger(), "s3cret", time.Hour)
	claims := jwt.MapClaims{
		"sub": "x",
		"iss": "ordercast",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(tok)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenService_DisabledWithoutSecret(t *testing.T) {
	svc := NewTokenService(testLogger(), "", 0)
	assert.False(t, svc.Enabled())
	_, err := svc.GenerateToken("x", domain.RoleCustomer)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
