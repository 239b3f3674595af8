package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	gomail "github.com/wneessen/go-mail"

	"github.com/iliyamo/contacts-api/internal/config"
)

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	cfg    config.MailConfig
	client *gomail.Client
}

// NewSMTPSender builds a client for cfg. Connections are opened per message.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	if cfg.SSL {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}
	client, err := gomail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{cfg: cfg, client: client}, nil
}

// Send renders m and hands it to the relay.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	subject, body, err := Render(m)
	if err != nil {
		return err
	}
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info().Str("kind", string(m.Kind)).Str("to", m.To).Msg("mail sent")
	return nil
}

// LogSender renders messages and only logs that they would be sent.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) error {
	subject, _, err := Render(m)
	if err != nil {
		return err
	}
	log.Info().Str("kind", string(m.Kind)).Str("to", m.To).Str("subject", subject).Msg("mail delivery disabled, message dropped")
	return nil
}
