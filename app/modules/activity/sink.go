package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Sink accepts activity events.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Notify publishes event and logs a failure instead of returning it.
func Notify(ctx context.Context, sink Sink, logger *slog.Logger, event Event) {
	if sink == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := sink.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish activity event",
			slog.String("event_type", string(event.Type)),
			slog.String("subject_id", event.SubjectID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// PublisherSink encodes events as JSON watermill messages.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
}

// NewPublisherSink publishes each event on its own per-type topic.
func NewPublisherSink(publisher message.Publisher) *PublisherSink {
	return &PublisherSink{publisher: publisher}
}

// NewSingleTopicSink publishes every event on topic. Used with pub/subs that
// cannot subscribe by wildcard.
func NewSingleTopicSink(publisher message.Publisher, topic string) *PublisherSink {
	return &PublisherSink{publisher: publisher, topic: topic}
}

const eventTypeMetadataKey = "event_type"

func (s *PublisherSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("activity.Publish: marshal %s: %w", event.Type, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventTypeMetadataKey, string(event.Type))
	msg.Metadata.Set("subject_id", event.SubjectID.String())
	msg.SetContext(ctx)

	topic := s.topic
	if topic == "" {
		topic = event.Topic()
	}
	if err := s.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("activity.Publish: %s: %w", topic, err)
	}
	return nil
}

func (s *PublisherSink) Close() error {
	return s.publisher.Close()
}

// Decode unpacks an event from a message produced by PublisherSink.
func Decode(msg *message.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return Event{}, fmt.Errorf("activity.Decode: %w", err)
	}
	return event, nil
}

// NoopSink drops every event.
type NoopSink struct{}

func (NoopSink) Publish(context.Context, Event) error { return nil }
