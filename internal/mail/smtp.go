package mail

import (
	"context"
	"fmt"
	"net"
	"strconv"

	gomail "github.com/wneessen/go-mail"

	"github.com/ethanolivertroy/compliance-notifier/internal/models"
)

// SMTPSender relays messages through an SMTP server
type SMTPSender struct {
	addr string
	send func(ctx context.Context, msgs ...*gomail.Msg) error
}

// NewSMTPSender creates a sender for cfg. STARTTLS is used when the server
// offers it, and PLAIN auth when a username is configured.
func NewSMTPSender(cfg models.MailConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail.host must be set for smtp transport")
	}
	port := cfg.Port
	if port == 0 {
		port = 25
	}

	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password))
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPSender{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		send: client.DialAndSendWithContext,
	}, nil
}

// Send builds msg and hands it to the server
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := msg.build()
	if err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("smtp %s: %w", s.addr, err)
	}
	return nil
}
