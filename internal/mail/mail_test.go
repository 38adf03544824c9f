package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantscout/internal/model"
)

func TestComposeThenParse(t *testing.T) {
	date := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	raw, err := Compose("scout@example.com", []string{"me@example.com"}, "Film Funding Digest", "deeper 5\nä ok", date)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: Film Funding Digest")

	msg, err := ParseMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Film Funding Digest", msg.Subject)
	assert.Equal(t, "scout@example.com", msg.From)
	assert.Equal(t, []string{"me@example.com"}, msg.To)
	assert.Equal(t, "deeper 5\nä ok", msg.Body)
	assert.True(t, strings.HasSuffix(msg.MessageID, "@grantscout"))
}

func TestParseMessage_Multipart(t *testing.T) {
	raw := strings.Join([]string{
		"From: Someone <someone@example.com>",
		"Subject: Re: Film Funding Digest",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>details 3</p>",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"details 3",
		"draft 4",
		"--b1--",
		"",
	}, "\r\n")

	msg, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", msg.From)
	assert.Equal(t, "Re: Film Funding Digest", msg.Subject)
	assert.Equal(t, "details 3\r\ndraft 4", msg.Body)
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	s := NewSMTPSender(model.EmailConfig{SMTPHost: "smtp.example.com"}, nil)
	assert.False(t, s.Configured())

	err := s.Send(context.Background(), "x", "y")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(model.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 2525,
		SMTPUser: "user",
		SMTPPass: "pass",
		From:     "scout@example.com",
		To:       "me@example.com",
	}, nil)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  []byte
		gotAuth sasl.Client
	)
	s.send = func(addr string, a sasl.Client, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "Draft Application", "Dear funder"))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"me@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)

	msg, err := ParseMessage(bytes.NewReader(gotMsg))
	require.NoError(t, err)
	assert.Equal(t, "Draft Application", msg.Subject)
	assert.Equal(t, "Dear funder", msg.Body)
}

func TestSMTPSender_SendError(t *testing.T) {
	s := NewSMTPSender(model.EmailConfig{SMTPHost: "h", From: "a@example.com", To: "b@example.com"}, nil)
	s.send = func(string, sasl.Client, string, []string, []byte) error { return errors.New("554 rejected") }

	err := s.Send(context.Background(), "Film Funding Digest", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "554 rejected")
}

type capturedMail struct {
	mu   sync.Mutex
	from string
	to   []string
	data []byte
}

type captureBackend struct{ got *capturedMail }

func (b captureBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &captureSession{got: b.got}, nil
}

type captureSession struct{ got *capturedMail }

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	s.got.mu.Lock()
	defer s.got.mu.Unlock()
	s.got.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.got.mu.Lock()
	defer s.got.mu.Unlock()
	s.got.to = append(s.got.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.got.mu.Lock()
	defer s.got.mu.Unlock()
	s.got.data = b
	return nil
}

func (s *captureSession) Reset()        {}
func (s *captureSession) Logout() error { return nil }

func TestSMTPSender_DeliversToServer(t *testing.T) {
	got := &capturedMail{}
	srv := smtp.NewServer(captureBackend{got: got})
	srv.Domain = "localhost"

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	port := l.Addr().(*net.TCPAddr).Port
	s := NewSMTPSender(model.EmailConfig{
		SMTPHost: "127.0.0.1",
		SMTPPort: port,
		From:     "scout@example.com",
		To:       "me@example.com",
	}, nil)

	require.NoError(t, s.Send(context.Background(), "Film Funding Digest", "deeper 5"))

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, "scout@example.com", got.from)
	assert.Equal(t, []string{"me@example.com"}, got.to)
	assert.Contains(t, string(got.data), "Subject: Film Funding Digest")
	assert.Contains(t, string(got.data), "deeper 5")
}

func TestIMAPPoller_NotConfigured(t *testing.T) {
	p := NewIMAPPoller(model.EmailConfig{IMAPHost: "imap.example.com"}, nil)
	assert.False(t, p.Configured())

	_, err := p.Poll(context.Background())
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
