package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sorynturda/link-sharing/types"
)

// Activity publishes and reads activity events on one channel.
type Activity struct {
	mq      *MQ
	channel string
}

func NewActivity(mq *MQ, channel string) *Activity {
	return &Activity{mq: mq, channel: channel}
}

// Publish encodes ev as JSON. A zero OccurredAt is set to now.
func (a *Activity) Publish(ctx context.Context, ev types.ActivityEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode activity event: %w", err)
	}
	msg := Message{
		Type:        ev.Type,
		ContentType: "application/json",
		PublishedAt: ev.OccurredAt,
		Data:        data,
	}
	if _, err := a.mq.Publish(ctx, a.channel, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Tail delivers every event on the channel to fn until ctx ends. Messages
// that do not decode are dropped by the broker adapter.
func (a *Activity) Tail(ctx context.Context, fn func(types.ActivityEvent) error) error {
	return a.mq.Subscribe(ctx, a.channel, func(ctx context.Context, msg Message) error {
		ev, err := decodeEvent(msg)
		if err != nil {
			return err
		}
		return fn(ev)
	})
}

func decodeEvent(msg Message) (types.ActivityEvent, error) {
	var ev types.ActivityEvent
	if msg.ContentType != "application/json" && msg.ContentType != defaultContentType {
		return ev, fmt.Errorf("%w: content type %s", ErrUnreadable, msg.ContentType)
	}
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if ev.Type == "" {
		ev.Type = msg.Type
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = msg.PublishedAt
	}
	return ev, nil
}
