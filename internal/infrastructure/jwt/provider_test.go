package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-api-mailer/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(testSecret)
	require.NoError(t, err)
	return p
}

func TestNewProvider_EmptySecret(t *testing.T) {
	_, err := NewProvider("")
	require.Error(t, err)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.SignOTP("a@b.com", "123456", 5*time.Minute)
	require.NoError(t, err)

	claims, err := p.Verify(signed, AudienceOTP)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, p.MatchCode(claims, "123456"))
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
}

func TestSignOTP_PayloadDoesNotRevealCode(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.SignOTP("victim@example.com", "637782", 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "637782")
	assert.NotContains(t, string(payload), `"otp"`)
}

func TestMatchCode(t *testing.T) {
	p := newTestProvider(t)
	signed, err := p.SignOTP("a@b.com", "123456", time.Minute)
	require.NoError(t, err)
	claims, err := p.Verify(signed, AudienceOTP)
	require.NoError(t, err)

	assert.True(t, p.MatchCode(claims, "123456"))
	for _, wrong := range []string{"654321", "12345", "1234567", " 123456", ""} {
		assert.False(t, p.MatchCode(claims, wrong), wrong)
	}

	// the digest is bound to the email and the token id
	moved := *claims
	moved.Email = "z@w.com"
	assert.False(t, p.MatchCode(&moved, "123456"))
	moved = *claims
	moved.ID = "other"
	assert.False(t, p.MatchCode(&moved, "123456"))

	// a provider with another secret cannot confirm the code
	other, err := NewProvider("another-secret-987654321")
	require.NoError(t, err)
	assert.False(t, other.MatchCode(claims, "123456"))

	assert.False(t, p.MatchCode(nil, "123456"))
	session, err := p.Sign("a@b.com", AudienceSession, time.Minute)
	require.NoError(t, err)
	sc, err := p.Verify(session, AudienceSession)
	require.NoError(t, err)
	assert.False(t, p.MatchCode(sc, ""))
}

func TestVerify_Expired(t *testing.T) {
	p := newTestProvider(t)
	past := time.Now().Add(-8 * 24 * time.Hour)

	signed, err := p.WithClock(func() time.Time { return past }).Sign("a@b.com", AudienceSession, 7*24*time.Hour)
	require.NoError(t, err)

	_, err = p.Verify(signed, AudienceSession)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_WrongAudience(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.SignOTP("a@b.com", "123456", time.Minute)
	require.NoError(t, err)

	_, err = p.Verify(signed, AudienceSession)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_WrongSecret(t *testing.T) {
	other, err := NewProvider("another-secret-987654321")
	require.NoError(t, err)
	signed, err := other.Sign("a@b.com", AudienceSession, time.Hour)
	require.NoError(t, err)

	_, err = newTestProvider(t).Verify(signed, AudienceSession)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_Malformed(t *testing.T) {
	_, err := newTestProvider(t).Verify("not-a-real-token", AudienceSession)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	claims := &Claims{
		Email: "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{AudienceSession},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privKey)
	require.NoError(t, err)

	_, err = newTestProvider(t).Verify(signed, AudienceSession)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_MissingExpiry(t *testing.T) {
	claims := &Claims{
		Email:            "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{AudienceSession}},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = newTestProvider(t).Verify(signed, AudienceSession)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}
