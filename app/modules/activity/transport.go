package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream that captures every activity topic.
const StreamName = "ACTIVITY"

// JetStreamPublisher is a watermill message.Publisher writing to a NATS
// JetStream stream. The watermill message UUID becomes the Nats-Msg-Id so
// redelivered publishes are deduplicated by the server.
type JetStreamPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	timeout time.Duration
}

// NewJetStreamPublisher connects to url and provisions the activity stream.
func NewJetStreamPublisher(ctx context.Context, url string, logger *slog.Logger) (*JetStreamPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("club-ladder"),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"activity.>"},
		MaxAge:   30 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to provision %s stream: %w", StreamName, err)
	}

	return &JetStreamPublisher{conn: conn, js: js, timeout: 5 * time.Second}, nil
}

func (p *JetStreamPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		ctx, cancel := context.WithTimeout(msg.Context(), p.timeout)
		natsMsg := &nats.Msg{
			Subject: topic,
			Data:    msg.Payload,
			Header:  nats.Header{},
		}
		for k, v := range msg.Metadata {
			natsMsg.Header.Set(k, v)
		}

		_, err := p.js.PublishMsg(ctx, natsMsg, jetstream.WithMsgID(msg.UUID))
		cancel()
		if err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}
	return nil
}

func (p *JetStreamPublisher) Close() error {
	return p.conn.Drain()
}

var _ message.Publisher = (*JetStreamPublisher)(nil)

// NewInProcess returns a gochannel pub/sub for running without NATS. The
// returned subscriber sees every published event.
func NewInProcess(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
}

// LogFeed consumes topic from subscriber and logs each event until ctx is
// done. Used to surface the in-process feed in development.
func LogFeed(ctx context.Context, subscriber message.Subscriber, topic string, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			event, err := Decode(msg)
			if err != nil {
				logger.Warn("Dropping undecodable activity message", slog.String("error", err.Error()))
				msg.Ack()
				continue
			}
			logger.Info("Activity",
				slog.String("event_type", string(event.Type)),
				slog.String("subject_id", event.SubjectID.String()),
			)
			msg.Ack()
		}
	}()
	return nil
}
