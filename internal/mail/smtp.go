package mail

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
)

// SMTPSender delivers messages to the configured recipient
type SMTPSender struct {
	cfg    model.EmailConfig
	logger *zap.Logger
	now    func() time.Time
	send   func(addr string, a sasl.Client, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender; Send returns ErrNotConfigured until host, from and to are set
func NewSMTPSender(cfg model.EmailConfig, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SMTPSender{cfg: cfg, logger: logger, now: time.Now}
	s.send = s.sendMail
	return s
}

// Configured reports whether Send can be attempted
func (s *SMTPSender) Configured() bool {
	return s.cfg.SMTPHost != "" && s.cfg.From != "" && s.cfg.To != ""
}

// Send mails a plain-text message to the configured recipient
func (s *SMTPSender) Send(ctx context.Context, subject, body string) error {
	if !s.Configured() {
		return fmt.Errorf("smtp: %w", ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	to := []string{s.cfg.To}
	msg, err := Compose(s.cfg.From, to, subject, body, s.now())
	if err != nil {
		return err
	}

	var auth sasl.Client
	if s.cfg.SMTPUser != "" {
		auth = sasl.NewPlainClient("", s.cfg.SMTPUser, s.cfg.SMTPPass)
	}

	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.port()))
	if err := s.send(addr, auth, s.cfg.From, to, msg); err != nil {
		return fmt.Errorf("smtp send %q: %w", subject, err)
	}
	s.logger.Info("Email sent", zap.String("subject", subject), zap.String("to", s.cfg.To))
	return nil
}

func (s *SMTPSender) port() int {
	if s.cfg.SMTPPort > 0 {
		return s.cfg.SMTPPort
	}
	return 587
}

// sendMail uses implicit TLS on port 465 and STARTTLS (when offered) otherwise
func (s *SMTPSender) sendMail(addr string, auth sasl.Client, from string, to []string, msg []byte) error {
	if s.port() == 465 {
		return smtp.SendMailTLS(addr, auth, from, to, bytes.NewReader(msg))
	}
	return smtp.SendMail(addr, auth, from, to, bytes.NewReader(msg))
}
