package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-api-mailer/internal/domain"
	jwtinfra "github.com/go-api-mailer/internal/infrastructure/jwt"
	"github.com/go-api-mailer/internal/infrastructure/smtp"
	"github.com/go-api-mailer/internal/infrastructure/sns"
	"github.com/go-api-mailer/internal/observability/metrics"
	"github.com/go-api-mailer/internal/pkg/id"
	"github.com/go-api-mailer/internal/pkg/validate"
	"go.uber.org/zap"
)

// StatusSent is echoed back to the caller after a successful dispatch.
const StatusSent = "Email sent successfully"

type Service interface {
	Send(ctx context.Context, req domain.SendRequest) (string, error)
}

// TokenVerifier checks session tokens.
type TokenVerifier interface {
	Verify(tokenStr, audience string) (*jwtinfra.Claims, error)
}

type ServiceDeps struct {
	Tokens             TokenVerifier
	Mailer             smtp.Mailer
	Events             sns.EventPublisher // optional
	Metrics            *metrics.Metrics
	Logger             *zap.Logger
	DefaultDisplayName string
}

type service struct {
	tokens      TokenVerifier
	mailer      smtp.Mailer
	events      sns.EventPublisher
	metrics     *metrics.Metrics
	log         *zap.Logger
	defaultName string
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
		tokens:      d.Tokens,
		mailer:      d.Mailer,
		events:      d.Events,
		metrics:     m,
		log:         log.With(zap.String("component", "send")),
		defaultName: d.DefaultDisplayName,
	}
}

func (s *service) Send(ctx context.Context, req domain.SendRequest) (string, error) {
	if err := validate.Struct(&req); err != nil {
		s.metrics.EmailsSent.WithLabelValues("rejected").Inc()
		if validate.Failed(err, "required") {
			return "", fmt.Errorf("missing required email fields: %w", domain.ErrBadRequest)
		}
		return "", fmt.Errorf("invalid email format: %w", domain.ErrBadRequest)
	}

	replyTo := req.ReplyTo
	verified := false
	if req.SessionToken != "" {
		claims, err := s.tokens.Verify(req.SessionToken, jwtinfra.AudienceSession)
		if err != nil {
			// A present but bad token never falls back to the caller's replyTo.
			s.metrics.EmailsSent.WithLabelValues("unauthorized").Inc()
			s.log.Warn("session token rejected", zap.Error(err))
			return "", fmt.Errorf("invalid authentication token: %w", domain.ErrUnauthorized)
		}
		replyTo = claims.Email
		verified = true
	}

	name := SanitizeDisplayName(req.DisplayName)
	if name == "" {
		name = s.defaultName
	}

	msg := &domain.OutboundEmail{
		MessageID: id.New(),
		FromName:  name,
		To:        req.To,
		ReplyTo:   replyTo,
		Subject:   req.Subject,
		Text:      req.Description,
	}
	if req.Attachment != nil && len(req.Attachment.Content) > 0 {
		msg.Attachments = []domain.Attachment{*req.Attachment}
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.EmailsSent.WithLabelValues("failed").Inc()
		s.log.Error("email dispatch failed", zap.String("message_id", msg.MessageID), zap.Error(err))
		return "", fmt.Errorf("failed to send email: %w: %w", err, domain.ErrDelivery)
	}
	s.metrics.EmailsSent.WithLabelValues("ok").Inc()
	s.log.Info("email dispatched",
		zap.String("message_id", msg.MessageID),
		zap.Bool("verified", verified),
		zap.Int("attachments", len(msg.Attachments)),
	)

	s.publish(ctx, msg, verified)
	return StatusSent, nil
}

func (s *service) publish(ctx context.Context, msg *domain.OutboundEmail, verified bool) {
	if s.events == nil {
		return
	}
	ev := sns.DeliveryEvent{
		MessageID:       msg.MessageID,
		RecipientDomain: domainOf(msg.To),
		Verified:        verified,
		HasAttachment:   len(msg.Attachments) > 0,
		SentAt:          time.Now().UTC(),
	}
	if err := s.events.PublishDelivery(ctx, ev); err != nil {
		s.log.Warn("delivery event not published", zap.String("message_id", msg.MessageID), zap.Error(err))
	}
}

var displayNameReplacer = strings.NewReplacer(
	"\r", " ",
	"\n", " ",
	"<", " ",
	">", " ",
	`"`, " ",
	"'", " ",
)

// SanitizeDisplayName strips characters that could break out of a From header.
func SanitizeDisplayName(raw string) string {
	return strings.TrimSpace(displayNameReplacer.Replace(raw))
}

// ResolveSessionToken picks the session token for a send request.
// The body value wins over an Authorization bearer header.
func ResolveSessionToken(bodyToken, authHeader string) string {
	if bodyToken != "" {
		return bodyToken
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return strings.ToLower(addr[i+1:])
	}
	return ""
}
