package events

//go:generate mockgen -destination=mock/mock_publisher.go -package=eventsmock github.com/KirkDiggler/combat-api/internal/events Publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/KirkDiggler/combat-api/internal/errors"
)

// Publisher emits outbound events for a combat
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Subscriber delivers a combat's outbound events in order
type Subscriber interface {
	Subscribe(ctx context.Context, combatID string) (<-chan *Envelope, error)
}

// Topic returns the per-combat event topic
func Topic(combatID string) string {
	return "combat.events." + combatID
}

// Bus is an in-process event bus bridging the engine to transport
// subscribers, backed by watermill's GoChannel pub/sub.
type Bus struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewBus creates the in-process event bus
func NewBus() *Bus {
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	return &Bus{
		pub: goChannel,
		sub: goChannel,
	}
}

// Ensure Bus implements both sides
var (
	_ Publisher  = (*Bus)(nil)
	_ Subscriber = (*Bus)(nil)
)

// Publish implements Publisher
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.InvalidArgument("event cannot be nil")
	}
	if event.CombatID == "" {
		return errors.InvalidArgument("event combat ID cannot be empty")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s event", event.Type)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	return b.pub.Publish(Topic(event.CombatID), msg)
}

// Subscribe implements Subscriber. The channel closes when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, combatID string) (<-chan *Envelope, error) {
	if combatID == "" {
		return nil, errors.InvalidArgument("combat ID cannot be empty")
	}

	messages, err := b.sub.Subscribe(ctx, Topic(combatID))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to subscribe to combat %s", combatID)
	}

	out := make(chan *Envelope)
	go func() {
		defer close(out)
		for msg := range messages {
			var env Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				// drop undecodable bus messages; they can only come
				// from our own publisher
				msg.Ack()
				continue
			}
			select {
			case out <- &env:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the bus down
func (b *Bus) Close() error {
	return b.sub.Close()
}
