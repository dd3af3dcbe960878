package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"

	"github.com/go-api-mailer/internal/config"
	"github.com/go-api-mailer/internal/domain"
	"github.com/go-api-mailer/internal/pkg/id"
	mail "github.com/go-mail/mail"
	"go.uber.org/zap"
)

// Mailer sends emails.
type Mailer interface {
	Send(ctx context.Context, msg *domain.OutboundEmail) error
}

type mailer struct {
	dialer *mail.Dialer
	from   string
	log    *zap.Logger
}

func NewMailer(cfg *config.Config, log *zap.Logger) Mailer {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.Timeout = cfg.SMTPTimeout
	d.RetryFailure = false
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}

	switch cfg.SMTPTLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.SSL = false
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.SSL = false
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// auto: implicit TLS on 465, opportunistic STARTTLS elsewhere
	}

	return &mailer{
		dialer: d,
		from:   cfg.SMTPFrom,
		log:    log.With(zap.String("component", "smtp"), zap.String("host", cfg.SMTPHost), zap.Int("port", cfg.SMTPPort)),
	}
}

func (m *mailer) Send(ctx context.Context, msg *domain.OutboundEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	messageID := msg.MessageID
	if messageID == "" {
		messageID = id.New()
	}

	mm := mail.NewMessage()
	mm.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", messageID, m.dialer.Host))
	mm.SetAddressHeader("From", m.from, msg.FromName)
	mm.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		mm.SetHeader("Reply-To", msg.ReplyTo)
	}
	mm.SetHeader("Subject", msg.Subject)
	mm.SetBody("text/plain", msg.Text)

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		mm.AttachReader(a.Filename, bytes.NewReader(a.Content), mail.SetHeader(map[string][]string{
			"Content-Type": {ct},
		}))
	}

	log := m.log.With(zap.String("message_id", messageID), zap.Int("attachments", len(msg.Attachments)))
	if err := m.dialer.DialAndSend(mm); err != nil {
		log.Error("smtp send failed", zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Debug("email sent")
	return nil
}
