package events

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
)

// amqpChannel is the subset of *amqp.Channel the publisher needs.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher emits row changes to the topic exchange. It implements
// notify.Notifier.
type Publisher struct {
	ch  amqpChannel
	seq Sequencer
}

func NewPublisher(conn *amqp.Connection, seq Sequencer) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newPublisher(ch, seq)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch amqpChannel, seq Sequencer) (*Publisher, error) {
	// declare up front so publish never fails due to missing infra
	if err := declareEventsExchange(ch); err != nil {
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return &Publisher{ch: ch, seq: seq}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) Notify(ctx context.Context, c notify.Change) error {
	env, body, err := buildRowChanged(ctx, c, p.seq)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		RoutingKey(c),
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Type:          env.EventName,
			Timestamp:     env.OccurredAt,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKey(c), err)
	}
	return nil
}
