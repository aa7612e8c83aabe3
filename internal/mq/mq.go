package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sorynturda/link-sharing/config"
)

// Attribute keys carried next to every payload. RabbitMQ maps them onto
// native message properties; Pub/Sub keeps them as attributes.
const (
	attrType        = "type"
	attrContentType = "content-type"
	attrPublishedAt = "published-at"
)

const defaultContentType = "application/octet-stream"

var (
	// ErrNoBroker is returned by Subscribe when no broker is configured.
	ErrNoBroker = errors.New("no message broker configured")
	// ErrUnreadable marks a message that will never be handled. Adapters
	// acknowledge it instead of asking for redelivery.
	ErrUnreadable = errors.New("unreadable message")
)

// Message is one activity payload as it travels through a broker.
type Message struct {
	ID          string
	Type        string
	ContentType string
	PublishedAt time.Time
	Data        []byte
	// Attributes holds anything beyond the fields above.
	Attributes map[string]string
}

// Handler processes a message. Errors wrapping ErrUnreadable drop the
// message; any other error asks the broker to deliver it again.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each broker adapter.
type Backend interface {
	Publish(ctx context.Context, channel string, msg Message) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ fills in message defaults before handing them to a backend.
type MQ struct {
	backend Backend
	now     func() time.Time
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend, now: time.Now}
}

// Open connects to the broker selected by cfg.Backend. An empty backend
// yields an MQ that drops published messages.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return Discard(), nil
	case "rabbitmq", "amqp":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return New(backend), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Discard returns an MQ that drops every published message.
func Discard() *MQ {
	return New(discard{})
}

// Publish sends msg to channel and returns the broker's message id.
func (m *MQ) Publish(ctx context.Context, channel string, msg Message) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("mq channel is required")
	}
	if msg.ContentType == "" {
		msg.ContentType = defaultContentType
	}
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = m.now().UTC()
	}
	return m.backend.Publish(ctx, channel, msg)
}

// Subscribe consumes messages from channel until ctx ends.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("mq channel is required")
	}
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	return m.backend.Close()
}

// Settlement is what an adapter does with a delivery once handled.
type Settlement int

const (
	Ack Settlement = iota
	Requeue
	Drop
)

func settle(err error) Settlement {
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, ErrUnreadable):
		return Drop
	default:
		return Requeue
	}
}

// toAttributes flattens msg for brokers that only carry string attributes.
func toAttributes(msg Message) map[string]string {
	attrs := make(map[string]string, len(msg.Attributes)+3)
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	if msg.Type != "" {
		attrs[attrType] = msg.Type
	}
	attrs[attrContentType] = msg.ContentType
	if !msg.PublishedAt.IsZero() {
		attrs[attrPublishedAt] = msg.PublishedAt.UTC().Format(time.RFC3339Nano)
	}
	return attrs
}

// fromAttributes is the inverse of toAttributes. brokerTime is used when
// the publisher did not stamp the message.
func fromAttributes(id string, data []byte, attrs map[string]string, brokerTime time.Time) Message {
	msg := Message{
		ID:          id,
		Data:        data,
		ContentType: defaultContentType,
		PublishedAt: brokerTime,
	}
	for k, v := range attrs {
		switch k {
		case attrType:
			msg.Type = v
		case attrContentType:
			if v != "" {
				msg.ContentType = v
			}
		case attrPublishedAt:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				msg.PublishedAt = t
			}
		default:
			if msg.Attributes == nil {
				msg.Attributes = make(map[string]string)
			}
			msg.Attributes[k] = v
		}
	}
	return msg
}

type discard struct{}

func (discard) Publish(ctx context.Context, channel string, msg Message) (string, error) {
	return "", nil
}

func (discard) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return ErrNoBroker
}

func (discard) Close() error {
	return nil
}
