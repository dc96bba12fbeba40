// Package messaging feeds inbound operator and user messages from RabbitMQ
// into the command dispatcher.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"airtime/internal/config"
	"airtime/internal/core"
	"airtime/internal/services/command"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// InboundMessage is the body published by the SMS/USSD router.
type InboundMessage struct {
	Identity string `json:"identity"`
	Text     string `json:"text"`
}

// Handler is satisfied by *command.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, identity, text string) (command.Reply, error)
}

type disposition int

const (
	ack disposition = iota
	requeue
)

// Consumer consumes inbound messages from RabbitMQ
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.AMQPCfg
	handler Handler
	reply   func(ctx context.Context, to, correlationID string, body []byte) error
}

// NewConsumer connects and declares the exchange, queue and binding.
func NewConsumer(cfg config.AMQPCfg, handler Handler) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(what string, err error) (*Consumer, error) {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}

	if err := channel.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	queue, err := channel.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := channel.QueueBind(queue.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	// one message at a time; transfers for an operator are serialized anyway
	if err := channel.Qos(1, 0, false); err != nil {
		return fail("set qos", err)
	}

	log.Info().
		Str("exchange", cfg.Exchange).
		Str("queue", cfg.Queue).
		Str("routing_key", cfg.RoutingKey).
		Msg("rabbitmq consumer initialized")

	c := &Consumer{conn: conn, channel: channel, config: cfg, handler: handler}
	c.reply = c.publishReply
	return c, nil
}

// Start consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(c.config.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	log.Info().Str("queue", c.config.Queue).Msg("rabbitmq consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping rabbitmq consumer")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			switch c.process(ctx, msg) {
			case requeue:
				if err := msg.Nack(false, true); err != nil {
					log.Error().Err(err).Msg("nack failed")
				}
			default:
				if err := msg.Ack(false); err != nil {
					log.Error().Err(err).Msg("ack failed")
				}
			}
		}
	}
}

// process handles one delivery. Malformed bodies and refused commands are
// acked; only failures outside the error taxonomy are requeued.
func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) disposition {
	var in InboundMessage
	if err := json.Unmarshal(msg.Body, &in); err != nil || strings.TrimSpace(in.Identity) == "" {
		log.Warn().Err(err).Str("message_id", msg.MessageId).Msg("dropping malformed inbound message")
		return ack
	}

	reply, err := c.handler.Handle(ctx, in.Identity, in.Text)
	if err != nil && !core.Known(err) {
		log.Error().Err(err).Str("identity", in.Identity).Msg("inbound message failed, requeueing")
		return requeue
	}
	if err != nil {
		log.Info().Err(err).Str("identity", in.Identity).Msg("inbound command refused")
	}

	if msg.ReplyTo != "" && reply.Text != "" {
		body, _ := json.Marshal(InboundMessage{Identity: in.Identity, Text: reply.Text})
		if err := c.reply(ctx, msg.ReplyTo, msg.CorrelationId, body); err != nil {
			log.Error().Err(err).Str("reply_to", msg.ReplyTo).Msg("failed to publish reply")
		}
	}
	return ack
}

func (c *Consumer) publishReply(ctx context.Context, to, correlationID string, body []byte) error {
	return c.channel.PublishWithContext(ctx, "", to, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		DeliveryMode:  amqp.Persistent,
		Body:          body,
	})
}

// Close releases the channel and the connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
