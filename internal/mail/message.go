// Package mail renders and delivers the account emails: address verification
// and password reset. Delivery is either direct over SMTP or through the
// RabbitMQ outbox drained by the mail worker; both carry a Message.
package mail

import (
	"context"
	"fmt"
)

// Kind selects the template and subject of a Message.
type Kind string

const (
	KindVerifyEmail   Kind = "verify_email"
	KindResetPassword Kind = "reset_password"
)

// Message is one outbound email. Token is embedded in the link sent to the
// recipient and is never logged.
type Message struct {
	Kind     Kind   `json:"kind"`
	To       string `json:"to"`
	Username string `json:"username"`
	Host     string `json:"host"`
	Token    string `json:"token"`
}

// Validate rejects messages that cannot be rendered.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("mail: empty recipient")
	}
	if _, ok := templates[m.Kind]; !ok {
		return fmt.Errorf("mail: unknown kind %q", m.Kind)
	}
	return nil
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}
