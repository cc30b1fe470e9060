package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	raw, err := svc.Issue("u1", "a@b.com", "abc")
	require.NoError(t, err)

	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "abc", claims.Username)
	require.NotNil(t, claims.ExpiresAt)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokenService("other-secret", time.Hour).Issue("u1", "a@b.com", "abc")
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := NewTokenService("secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	raw, err := svc.Issue("u1", "a@b.com", "abc")
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Minute).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestZeroTTLOmitsExpiry(t *testing.T) {
	svc := NewTokenService("secret", 0)
	raw, err := svc.Issue("u1", "a@b.com", "abc")
	require.NoError(t, err)

	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService("secret", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewTokenService("secret", time.Hour).Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
