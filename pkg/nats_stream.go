package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStreamPublisher implements events.Publisher over JetStream so placed
// orders survive consumers that are offline when the order is submitted.
type NATSStreamPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
}

type NATSStreamConfig struct {
	URL        string
	Name       string        // connection name
	StreamName string        // e.g. "POS_ORDERS"
	Subjects   []string      // e.g. "orders.placed"
	MaxAge     time.Duration // retention, zero keeps messages until MaxMsgs
	MaxMsgs    int64
}

// NewNATSStreamPublisher connects and creates or updates the stream.
func NewNATSStreamPublisher(ctx context.Context, cfg NATSStreamConfig) (*NATSStreamPublisher, error) {
	if cfg.StreamName == "" || len(cfg.Subjects) == 0 {
		return nil, fmt.Errorf("stream name and subjects are required")
	}

	conn, err := connect(cfg.URL, cfg.Name)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: cfg.Subjects,
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	return &NATSStreamPublisher{conn: conn, js: js, stream: stream}, nil
}

// Publish waits for the stream to acknowledge msg.
func (p *NATSStreamPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := p.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// Pending reports how many messages the stream currently retains.
func (p *NATSStreamPublisher) Pending(ctx context.Context) (uint64, error) {
	info, err := p.stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

func (p *NATSStreamPublisher) Close() error {
	return p.conn.Drain()
}
