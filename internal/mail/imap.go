package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/model"
)

// IMAPPoller fetches unseen messages and marks them seen as it reads them.
// A crash after fetching loses those messages' commands.
type IMAPPoller struct {
	cfg    model.EmailConfig
	logger *zap.Logger
}

// NewIMAPPoller creates a poller for the configured mailbox
func NewIMAPPoller(cfg model.EmailConfig, logger *zap.Logger) *IMAPPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IMAPPoller{cfg: cfg, logger: logger}
}

// Configured reports whether Poll can be attempted
func (p *IMAPPoller) Configured() bool {
	return p.cfg.IMAPHost != "" && p.cfg.IMAPUser != "" && p.cfg.IMAPPass != ""
}

// Poll returns every unseen message in the mailbox
func (p *IMAPPoller) Poll(ctx context.Context) ([]model.Message, error) {
	if !p.Configured() {
		return nil, fmt.Errorf("imap: %w", ErrNotConfigured)
	}

	c, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("imap connect: %w", err)
	}
	defer func() { _ = c.Logout() }()

	if err := c.Login(p.cfg.IMAPUser, p.cfg.IMAPPass); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	mailbox := p.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, false); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{}

	fetched := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, fetched)
	}()

	var out []model.Message
	for m := range fetched {
		body := m.GetBody(section)
		if body == nil {
			continue
		}
		msg, err := ParseMessage(body)
		if err != nil {
			p.logger.Warn("Skipping unreadable message", zap.Uint32("uid", m.Uid), zap.Error(err))
			continue
		}
		out = append(out, msg)
	}
	if err := <-done; err != nil {
		return out, fmt.Errorf("imap fetch: %w", err)
	}

	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		p.logger.Warn("Failed to flag messages seen", zap.Error(err))
	}

	p.logger.Info("Fetched unseen replies", zap.Int("count", len(out)))
	return out, nil
}

func (p *IMAPPoller) dial() (*client.Client, error) {
	port := p.cfg.IMAPPort
	if port <= 0 {
		port = 993
	}
	addr := net.JoinHostPort(p.cfg.IMAPHost, strconv.Itoa(port))

	if port == 993 {
		return client.DialTLS(addr, &tls.Config{ServerName: p.cfg.IMAPHost})
	}

	c, err := client.Dial(addr)
	if err != nil {
		return nil, err
	}
	if ok, _ := c.SupportStartTLS(); ok {
		if err := c.StartTLS(&tls.Config{ServerName: p.cfg.IMAPHost}); err != nil {
			_ = c.Logout()
			return nil, err
		}
	}
	return c, nil
}
