package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vidsum/orchestrator/internal/domain/repository"
)

// EventBus implements repository.EventBus on go-redis's native Pub/Sub.
// Deliberately NOT Streams/XAdd: a subscribed channel here carries only
// in-flight progress, never durable history, so plain Publish/Subscribe is
// the right-sized primitive.
type EventBus struct {
	client   *Client
	idleTime time.Duration
}

// NewEventBus creates an event bus bound to client. idleTime bounds how long
// Subscribe waits for a message before giving up on a channel nobody is
// publishing to anymore.
func NewEventBus(client *Client, idleTime time.Duration) *EventBus {
	return &EventBus{client: client, idleTime: idleTime}
}

// Publish sends ev on channel. Fire-and-forget: Publish to a channel with no
// subscribers succeeds and does nothing.
func (b *EventBus) Publish(ctx context.Context, channel string, ev repository.Event) error {
	ctx, span := tracer.Start(ctx, "eventbus.Publish")
	span.SetAttributes(attribute.String("eventbus.channel", channel))
	defer span.End()

	payload, err := json.Marshal(ev)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish event on %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of Events for the given topic. The returned
// channel closes when the first EventClose message arrives, when idleTime
// elapses with no message, or when ctx is cancelled; the cleanup func must
// be called on every exit path.
func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan repository.Event, func(), error) {
	_, span := tracer.Start(ctx, "eventbus.Subscribe")
	span.SetAttributes(attribute.String("eventbus.channel", channel))

	sub := b.client.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		span.RecordError(err)
		span.End()
		sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan repository.Event)
	cleanup := func() {
		sub.Close()
		span.End()
	}

	go func() {
		defer close(out)

		raw := sub.Channel()
		idle := time.NewTimer(b.idleTime)
		defer idle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-idle.C:
				return
			case msg, ok := <-raw:
				if !ok {
					return
				}
				if !idle.Stop() {
					<-idle.C
				}
				idle.Reset(b.idleTime)

				var ev repository.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Tag == repository.EventClose {
					return
				}
			}
		}
	}()

	return out, cleanup, nil
}
