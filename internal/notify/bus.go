// Package notify delivers change notifications and widget-refresh broadcasts
// from the store to in-process subscribers over a watermill pub/sub.
package notify

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/confsched/internal/logging"
	"github.com/mesh-intelligence/confsched/internal/metrics"
	"github.com/mesh-intelligence/confsched/pkg/types"
)

// Topics.
const (
	TopicChanges = "schedule.changes"
	TopicWidgets = "schedule.widgets"
)

const metadataCorrelationID = "correlation_id"

// Bus implements types.Notifier on an in-memory gochannel pub/sub.
// Messages published while nobody is subscribed are dropped, and delivery
// order across messages is not guaranteed.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger
	buffer int
}

// NewBus returns a Bus whose subscriber channels hold up to buffer
// undelivered messages.
func NewBus(buffer int) *Bus {
	if buffer < 0 {
		buffer = 0
	}
	log := logging.WithComponent("notify")
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: int64(buffer)},
			newWatermillLogger(log),
		),
		log:    log,
		buffer: buffer,
	}
}

// NotifyChange publishes c on TopicChanges.
func (b *Bus) NotifyChange(ctx context.Context, c types.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	return b.publish(ctx, TopicChanges, payload)
}

// RefreshWidgets publishes an empty message on TopicWidgets.
func (b *Bus) RefreshWidgets(ctx context.Context) error {
	return b.publish(ctx, TopicWidgets, nil)
}

func (b *Bus) publish(ctx context.Context, topic string, payload []byte) error {
	msg := message.NewMessage(uuid.NewString(), payload)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(metadataCorrelationID, id)
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	metrics.RecordNotification(topic)
	return nil
}

// Subscribe returns decoded change notifications until ctx is cancelled or
// the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan types.Change, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicChanges)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", TopicChanges, err)
	}
	out := make(chan types.Change, b.buffer)
	go func() {
		defer close(out)
		for msg := range msgs {
			var c types.Change
			if err := json.Unmarshal(msg.Payload, &c); err != nil {
				b.log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed change")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SubscribeWidgets returns one value per widget-refresh broadcast.
func (b *Bus) SubscribeWidgets(ctx context.Context) (<-chan struct{}, error) {
	msgs, err := b.pubsub.Subscribe(ctx, TopicWidgets)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", TopicWidgets, err)
	}
	out := make(chan struct{}, b.buffer)
	go func() {
		defer close(out)
		for msg := range msgs {
			msg.Ack()
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the pub/sub down and closes every subscription channel.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Nop is a Notifier that discards everything.
type Nop struct{}

func (Nop) NotifyChange(context.Context, types.Change) error { return nil }
func (Nop) RefreshWidgets(context.Context) error             { return nil }
