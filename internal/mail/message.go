// Package mail sends plain-text digests over SMTP and polls an IMAP mailbox
// for unseen replies.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/ppiankov/grantscout/internal/model"
)

// ErrNotConfigured is returned when the transport settings are incomplete
var ErrNotConfigured = errors.New("mail transport not configured")

// Compose renders a single-part text/plain message
func Compose(from string, to []string, subject, body string, date time.Time) ([]byte, error) {
	var h gomail.Header
	h.SetDate(date)
	h.SetSubject(subject)
	h.SetAddressList("From", []*gomail.Address{{Address: from}})

	rcpts := make([]*gomail.Address, 0, len(to))
	for _, addr := range to {
		rcpts = append(rcpts, &gomail.Address{Address: addr})
	}
	h.SetAddressList("To", rcpts)
	h.SetMessageID(uuid.NewString() + "@grantscout")
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseMessage reads an RFC 5322 message and keeps its first text/plain part as the body
func ParseMessage(r io.Reader) (model.Message, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return model.Message{}, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	var msg model.Message
	msg.Subject, _ = mr.Header.Subject()
	msg.MessageID, _ = mr.Header.MessageID()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	if to, err := mr.Header.AddressList("To"); err == nil {
		for _, a := range to {
			msg.To = append(msg.To, a.Address)
		}
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return msg, fmt.Errorf("read part: %w", err)
		}
		if part == nil {
			break
		}

		h, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if ct != "" && !strings.EqualFold(ct, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return msg, fmt.Errorf("read body: %w", err)
		}
		msg.Body = string(body)
		break
	}
	return msg, nil
}
