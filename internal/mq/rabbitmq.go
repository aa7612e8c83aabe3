package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sorynturda/link-sharing/config"
)

// RabbitMQClient carries activity events over RabbitMQ, one queue per
// channel on the default exchange.
type RabbitMQClient struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  config.RabbitMQConfig

	// mu serializes publishes and queue declarations on ch.
	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQClient dials cfg.URL and opens one channel.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return &RabbitMQClient{conn: conn, ch: ch, cfg: cfg, declared: make(map[string]bool)}, nil
}

func (r *RabbitMQClient) Publish(ctx context.Context, channel string, msg Message) (string, error) {
	pub := publishing(msg)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.declare(channel); err != nil {
		return "", err
	}
	if err := r.ch.PublishWithContext(ctx, "", channel, false, false, pub); err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return pub.MessageId, nil
}

// Subscribe consumes channel until ctx ends or the broker closes the
// delivery stream.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	r.mu.Lock()
	err := r.declare(channel)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	tag := "linkshare-" + uuid.NewString()
	deliveries, err := r.ch.Consume(channel, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}
	defer func() { _ = r.ch.Cancel(tag, false) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			switch settle(handler(ctx, delivered(d))) {
			case Ack:
				_ = d.Ack(false)
			case Drop:
				_ = d.Reject(false)
			case Requeue:
				_ = d.Nack(false, true)
			}
		}
	}
}

func (r *RabbitMQClient) Close() error {
	_ = r.ch.Close()
	return r.conn.Close()
}

func (r *RabbitMQClient) declare(queue string) error {
	if r.declared[queue] {
		return nil
	}
	_, err := r.ch.QueueDeclare(queue, r.cfg.QueueDurable, r.cfg.QueueAutoDelete, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	r.declared[queue] = true
	return nil
}

// publishing maps the message fields onto AMQP properties. Only extra
// attributes travel as headers.
func publishing(msg Message) amqp.Publishing {
	var headers amqp.Table
	if len(msg.Attributes) > 0 {
		headers = make(amqp.Table, len(msg.Attributes))
		for k, v := range msg.Attributes {
			headers[k] = v
		}
	}
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return amqp.Publishing{
		MessageId:    id,
		Type:         msg.Type,
		ContentType:  msg.ContentType,
		Timestamp:    msg.PublishedAt,
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
		Body:         msg.Data,
	}
}

func delivered(d amqp.Delivery) Message {
	msg := Message{
		ID:          d.MessageId,
		Type:        d.Type,
		ContentType: d.ContentType,
		PublishedAt: d.Timestamp,
		Data:        d.Body,
	}
	if msg.ContentType == "" {
		msg.ContentType = defaultContentType
	}
	if len(d.Headers) > 0 {
		msg.Attributes = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			switch typed := v.(type) {
			case string:
				msg.Attributes[k] = typed
			case []byte:
				msg.Attributes[k] = string(typed)
			default:
				msg.Attributes[k] = fmt.Sprint(v)
			}
		}
	}
	return msg
}
