// Package queue moves outbound mail through RabbitMQ. The API publishes
// mail.Message jobs to a durable queue and the mail-worker command consumes
// them and hands each one to an SMTP sender.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/contacts-api/internal/mail"
)

// Publisher enqueues mail jobs. It satisfies mail.Sender, so the API can swap
// direct SMTP delivery for the queue without touching the workflows.
type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

func declare(ch *amqp.Channel, queue string) error {
	// Durable so jobs survive broker restarts.
	_, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	return err
}

// encode builds the persistent publishing for m.
func encode(m mail.Message) (amqp.Publishing, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal job: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    uuid.NewString(),
		Type:         string(m.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

// Send publishes m to the outbox queue. A connection is opened per call;
// mail volume is a handful of messages per signup or reset.
func (p *Publisher) Send(ctx context.Context, m mail.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	pub, err := encode(m)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, p.queue); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	log.Debug().Str("kind", string(m.Kind)).Str("message_id", pub.MessageId).Msg("mail job queued")
	return nil
}
