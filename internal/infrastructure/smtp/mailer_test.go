package smtp

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gomail "github.com/emersion/go-message/mail"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/go-api-mailer/internal/config"
	"github.com/go-api-mailer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- in-process SMTP sink ---

type received struct {
	From string
	To   []string
	Data []byte
}

type sinkBackend struct {
	mu   sync.Mutex
	msgs []received
}

func (b *sinkBackend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &sinkSession{backend: b}, nil
}

func (b *sinkBackend) messages() []received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]received(nil), b.msgs...)
}

type sinkSession struct {
	backend *sinkBackend
	cur     received
}

func (s *sinkSession) Mail(from string, _ *gosmtp.MailOptions) error {
	s.cur.From = from
	return nil
}

func (s *sinkSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.cur.To = append(s.cur.To, to)
	return nil
}

func (s *sinkSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.cur.Data = data
	s.backend.mu.Lock()
	s.backend.msgs = append(s.backend.msgs, s.cur)
	s.backend.mu.Unlock()
	return nil
}

func (s *sinkSession) Reset()        { s.cur = received{} }
func (s *sinkSession) Logout() error { return nil }

// startSink runs a go-smtp server on a random loopback port and returns a
// config pointing at it.
func startSink(t *testing.T) (*sinkBackend, *config.Config) {
	t.Helper()
	be := &sinkBackend{}
	srv := gosmtp.NewServer(be)
	srv.Domain = "localhost"
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return be, &config.Config{
		SMTPHost:    host,
		SMTPPort:    port,
		SMTPFrom:    "sender@example.com",
		SMTPTLSMode: "none",
		SMTPTimeout: 5 * time.Second,
	}
}

func parse(t *testing.T, raw []byte) *gomail.Reader {
	t.Helper()
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mr.Close() })
	return mr
}

// --- tests ---

func TestSend_PlainMessage(t *testing.T) {
	be, cfg := startSink(t)
	m := NewMailer(cfg, zap.NewNop())

	err := m.Send(context.Background(), &domain.OutboundEmail{
		MessageID: "01TESTMESSAGE",
		FromName:  "Alice Example",
		To:        "bob@example.org",
		ReplyTo:   "alice@example.net",
		Subject:   "Hello",
		Text:      "Body text",
	})
	require.NoError(t, err)

	msgs := be.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "sender@example.com", msgs[0].From)
	assert.Equal(t, []string{"bob@example.org"}, msgs[0].To)

	mr := parse(t, msgs[0].Data)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Hello", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "Alice Example", from[0].Name)
	assert.Equal(t, "sender@example.com", from[0].Address)

	replyTo, err := mr.Header.AddressList("Reply-To")
	require.NoError(t, err)
	require.Len(t, replyTo, 1)
	assert.Equal(t, "alice@example.net", replyTo[0].Address)

	assert.Equal(t, "<01TESTMESSAGE@127.0.0.1>", mr.Header.Get("Message-Id"))

	p, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(p.Body)
	require.NoError(t, err)
	assert.Equal(t, "Body text", strings.TrimSpace(string(body)))
}

func TestSend_WithAttachment(t *testing.T) {
	be, cfg := startSink(t)
	m := NewMailer(cfg, zap.NewNop())

	err := m.Send(context.Background(), &domain.OutboundEmail{
		FromName: "Alice",
		To:       "bob@example.org",
		Subject:  "CV",
		Text:     "See attached",
		Attachments: []domain.Attachment{{
			Filename:    "cv.pdf",
			ContentType: "application/pdf",
			Content:     []byte("%PDF-1.4 fake"),
		}},
	})
	require.NoError(t, err)

	msgs := be.messages()
	require.Len(t, msgs, 1)
	mr := parse(t, msgs[0].Data)

	var found bool
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if h, ok := p.Header.(*gomail.AttachmentHeader); ok {
			name, err := h.Filename()
			require.NoError(t, err)
			ct, _, err := h.ContentType()
			require.NoError(t, err)
			content, err := io.ReadAll(p.Body)
			require.NoError(t, err)

			assert.Equal(t, "cv.pdf", name)
			assert.Equal(t, "application/pdf", ct)
			assert.Equal(t, "%PDF-1.4 fake", string(content))
			found = true
		}
	}
	assert.True(t, found, "attachment part missing")
}

func TestSend_HostileDisplayNameStaysInFromHeader(t *testing.T) {
	be, cfg := startSink(t)
	m := NewMailer(cfg, zap.NewNop())

	err := m.Send(context.Background(), &domain.OutboundEmail{
		FromName: "Evil  Bcc: x@y.com",
		To:       "bob@example.org",
		Subject:  "s",
		Text:     "t",
	})
	require.NoError(t, err)

	msgs := be.messages()
	require.Len(t, msgs, 1)
	mr := parse(t, msgs[0].Data)
	assert.Empty(t, mr.Header.Get("Bcc"))
	assert.Equal(t, []string{"bob@example.org"}, msgs[0].To)
}

func TestSend_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	m := NewMailer(&config.Config{
		SMTPHost:    "127.0.0.1",
		SMTPPort:    port,
		SMTPFrom:    "sender@example.com",
		SMTPTLSMode: "none",
		SMTPTimeout: time.Second,
	}, zap.NewNop())

	err = m.Send(context.Background(), &domain.OutboundEmail{To: "bob@example.org", Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send")
}

func TestSend_CancelledContext(t *testing.T) {
	be, cfg := startSink(t)
	m := NewMailer(cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Send(ctx, &domain.OutboundEmail{To: "bob@example.org", Subject: "s", Text: "t"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, be.messages())
}
