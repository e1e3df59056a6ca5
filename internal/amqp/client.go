package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishTransactionRecorded publishes a transaction.recorded event.
func (c *Client) PublishTransactionRecorded(ctx context.Context, msg TransactionRecordedMessage) error {
	return c.publish(ctx, TypeTransactionRecorded, msg)
}

// PublishChequeEvent publishes a cheque lifecycle event (TypeChequeDue,
// TypeChequeCleared, TypeChequeBounced).
func (c *Client) PublishChequeEvent(ctx context.Context, msgType string, msg ChequeEventMessage) error {
	return c.publish(ctx, msgType, msg)
}

func (c *Client) publish(ctx context.Context, msgType string, payload any) error {
	envelope, err := newEnvelope(msgType, payload)
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}
	body, err := envelope.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published ledger event",
		"type", msgType,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// Handlers dispatches consumed envelopes by message type. Nil handlers skip
// their message type with an ack.
type Handlers struct {
	TransactionRecorded func(*TransactionRecordedMessage) error
	ChequeEvent         func(msgType string, msg *ChequeEventMessage) error
}

// Consume processes ledger events until the context is cancelled. Messages
// that fail to decode are rejected without requeue; handler errors requeue.
func (c *Client) Consume(ctx context.Context, handlers Handlers) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			envelope, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := c.dispatch(envelope, handlers); err != nil {
				slog.ErrorContext(ctx, "Failed to handle ledger event",
					"error", err,
					"type", envelope.Type)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(envelope *Envelope, handlers Handlers) error {
	switch envelope.Type {
	case TypeTransactionRecorded:
		if handlers.TransactionRecorded == nil {
			return nil
		}
		var msg TransactionRecordedMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return fmt.Errorf("decode transaction event: %w", err)
		}
		return handlers.TransactionRecorded(&msg)
	case TypeChequeDue, TypeChequeCleared, TypeChequeBounced:
		if handlers.ChequeEvent == nil {
			return nil
		}
		var msg ChequeEventMessage
		if err := json.Unmarshal(envelope.Payload, &msg); err != nil {
			return fmt.Errorf("decode cheque event: %w", err)
		}
		return handlers.ChequeEvent(envelope.Type, &msg)
	default:
		slog.Warn("Unknown ledger event type", "type", envelope.Type)
		return nil
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
