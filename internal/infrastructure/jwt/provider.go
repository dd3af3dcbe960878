package jwtinfra

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-api-mailer/internal/domain"
	"github.com/go-api-mailer/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// Audiences separate the two token kinds so one is never accepted as the other.
const (
	AudienceOTP     = "otp"
	AudienceSession = "session"
)

// Claims holds the JWT payload fields. The payload is readable by anyone
// holding the token, so OTP tokens carry only a keyed digest of the code.
type Claims struct {
	Email      string `json:"email"`
	CodeDigest string `json:"cdg,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a process-wide secret.
type Provider struct {
	secret  []byte
	codeKey []byte
	now     func() time.Time
}

func NewProvider(secret string) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	// separate key for code digests
	kdf := hmac.New(sha256.New, []byte(secret))
	kdf.Write([]byte("otp-code-digest"))
	return &Provider{secret: []byte(secret), codeKey: kdf.Sum(nil), now: time.Now}, nil
}

// WithClock returns a copy of p that reads time from now. Used by tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	return &Provider{secret: p.secret, codeKey: p.codeKey, now: now}
}

// Sign issues a token for audience that expires after ttl.
func (p *Provider) Sign(email, audience string, ttl time.Duration) (string, error) {
	return p.sign(Claims{Email: email}, audience, ttl)
}

// SignOTP issues an OTP token for email. The code itself is not in the
// payload; only HMAC-SHA256(codeKey, email|jti|code) is.
func (p *Provider) SignOTP(email, code string, ttl time.Duration) (string, error) {
	jti := id.New()
	return p.sign(Claims{
		Email:            email,
		CodeDigest:       p.codeDigest(email, jti, code),
		RegisteredClaims: jwt.RegisteredClaims{ID: jti},
	}, AudienceOTP, ttl)
}

// MatchCode reports whether code is the one bound into an OTP token's claims.
func (p *Provider) MatchCode(claims *Claims, code string) bool {
	if claims == nil || claims.CodeDigest == "" || claims.ID == "" {
		return false
	}
	want := p.codeDigest(claims.Email, claims.ID, code)
	return subtle.ConstantTimeCompare([]byte(want), []byte(claims.CodeDigest)) == 1
}

func (p *Provider) codeDigest(email, jti, code string) string {
	mac := hmac.New(sha256.New, p.codeKey)
	for _, part := range []string{email, jti, code} {
		mac.Write([]byte(part))
		mac.Write([]byte{0})
	}
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (p *Provider) sign(claims Claims, audience string, ttl time.Duration) (string, error) {
	now := p.now()
	if claims.ID == "" {
		claims.ID = id.New()
	}
	claims.Audience = jwt.ClaimStrings{audience}
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.IssuedAt = jwt.NewNumericDate(now)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr and checks signature, expiry and audience.
// Every failure wraps domain.ErrTokenInvalid; the joined cause is for logs only.
func (p *Provider) Verify(tokenStr, audience string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	},
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrTokenInvalid)
	}
	return claims, nil
}
