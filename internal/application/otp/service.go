package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-api-mailer/internal/domain"
	jwtinfra "github.com/go-api-mailer/internal/infrastructure/jwt"
	"github.com/go-api-mailer/internal/infrastructure/smtp"
	"github.com/go-api-mailer/internal/observability/metrics"
	"github.com/go-api-mailer/internal/pkg/validate"
	"go.uber.org/zap"
)

const (
	codeMin   = 100000
	codeRange = 900000 // codes fall in [100000, 999999]

	verifiedMessage = "OTP Verified Successfully"
)

type RequestOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	OTP   string `json:"otp" validate:"required"`
	Token string `json:"token" validate:"required"`
}

// VerifyOTPResult carries the session token minted after a successful check.
type VerifyOTPResult struct {
	Success bool
	Message string
	Token   string
}

type Service interface {
	RequestOTP(ctx context.Context, req RequestOTPRequest) (token string, err error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*VerifyOTPResult, error)
}

// TokenCodec is the subset of the JWT provider the OTP flow needs.
type TokenCodec interface {
	Sign(email, audience string, ttl time.Duration) (string, error)
	SignOTP(email, code string, ttl time.Duration) (string, error)
	Verify(tokenStr, audience string) (*jwtinfra.Claims, error)
	MatchCode(claims *jwtinfra.Claims, code string) bool
}

// Cooldown rate-limits OTP requests per address.
type Cooldown interface {
	Reserve(key string) bool
	Release(key string)
}

type ServiceDeps struct {
	Tokens        TokenCodec
	Mailer        smtp.Mailer
	Cooldown      Cooldown
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	OTPExpiry     time.Duration
	SessionExpiry time.Duration
	SenderName    string
}

type service struct {
	tokens        TokenCodec
	mailer        smtp.Mailer
	cooldown      Cooldown
	metrics       *metrics.Metrics
	log           *zap.Logger
	otpExpiry     time.Duration
	sessionExpiry time.Duration
	senderName    string
}

func NewService(d ServiceDeps) Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &service{
		tokens:        d.Tokens,
		mailer:        d.Mailer,
		cooldown:      d.Cooldown,
		metrics:       m,
		log:           log.With(zap.String("component", "otp")),
		otpExpiry:     d.OTPExpiry,
		sessionExpiry: d.SessionExpiry,
		senderName:    d.SenderName,
	}
}

func (s *service) RequestOTP(ctx context.Context, req RequestOTPRequest) (string, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return "", fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	if !validate.Email(email) {
		return "", fmt.Errorf("invalid email format: %w", domain.ErrBadRequest)
	}
	if s.cooldown != nil && !s.cooldown.Reserve(email) {
		return "", fmt.Errorf("an OTP was sent recently, try again later: %w", domain.ErrTooManyRequests)
	}

	code, err := generateCode()
	if err != nil {
		s.release(email)
		return "", err
	}
	token, err := s.tokens.SignOTP(email, code, s.otpExpiry)
	if err != nil {
		s.release(email)
		return "", err
	}

	err = s.mailer.Send(ctx, &domain.OutboundEmail{
		FromName: s.senderName,
		To:       email,
		Subject:  "Your Verification Code",
		Text:     fmt.Sprintf("Your code is: %s. It expires in %s.", code, expiryText(s.otpExpiry)),
	})
	if err != nil {
		s.release(email)
		s.log.Error("otp delivery failed", zap.Error(err))
		return "", fmt.Errorf("could not send OTP email: %w", domain.ErrDelivery)
	}

	s.metrics.OTPIssued.Inc()
	return token, nil
}

func (s *service) VerifyOTP(_ context.Context, req VerifyOTPRequest) (*VerifyOTPResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("otp and token are required: %w", domain.ErrBadRequest)
	}

	claims, err := s.tokens.Verify(req.Token, jwtinfra.AudienceOTP)
	if err != nil || claims.CodeDigest == "" {
		s.metrics.OTPVerifications.WithLabelValues("invalid_token").Inc()
		s.log.Info("otp token rejected", zap.Error(err))
		return nil, fmt.Errorf("OTP expired or invalid token: %w", domain.ErrInvalidOTP)
	}
	if !s.tokens.MatchCode(claims, req.OTP) {
		s.metrics.OTPVerifications.WithLabelValues("wrong_code").Inc()
		s.log.Info("otp code mismatch", zap.String("token_id", claims.ID))
		return nil, fmt.Errorf("invalid OTP code: %w", domain.ErrInvalidOTP)
	}

	session, err := s.tokens.Sign(claims.Email, jwtinfra.AudienceSession, s.sessionExpiry)
	if err != nil {
		return nil, err
	}
	s.metrics.OTPVerifications.WithLabelValues("ok").Inc()
	return &VerifyOTPResult{Success: true, Message: verifiedMessage, Token: session}, nil
}

func (s *service) release(email string) {
	if s.cooldown != nil {
		s.cooldown.Release(email)
	}
}

// expiryText renders a validity window for the OTP message body.
func expiryText(d time.Duration) string {
	switch {
	case d == time.Minute:
		return "1 minute"
	case d > time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int64(d/time.Minute))
	case d == time.Second:
		return "1 second"
	case d > 0 && d%time.Second == 0 && d < time.Hour:
		return fmt.Sprintf("%d seconds", int64(d/time.Second))
	default:
		return d.String()
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
