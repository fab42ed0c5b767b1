// Package notify publishes domain events for external observers. Events ride
// a watermill pub/sub; in-process the gochannel implementation keeps ordering
// per subscriber.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/cimillas/ticket-ledger/internal/domain"
)

// Topic carries every domain event; consumers filter on the name metadata.
const Topic = "ticketing.events"

const nameMetadataKey = "name"

// Publisher adapts a watermill publisher to the engine's Notifier interface.
type Publisher struct {
	pub message.Publisher
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", n.Kind(), err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(nameMetadataKey, n.Kind())
	msg.SetContext(ctx)

	if err := p.pub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish notification %s: %w", n.Kind(), err)
	}
	return nil
}

// NewGoChannel returns an in-process pub/sub usable as both publisher and
// subscriber.
func NewGoChannel(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, logger)
}

// RunLogConsumer subscribes to the event topic and logs each event until the
// context ends. It returns once the subscription is established.
func RunLogConsumer(ctx context.Context, sub message.Subscriber, logger *log.Logger) error {
	messages, err := sub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}

	go func() {
		for msg := range messages {
			logger.Printf("event name=%s payload=%s", msg.Metadata.Get(nameMetadataKey), msg.Payload)
			msg.Ack()
		}
	}()
	return nil
}
