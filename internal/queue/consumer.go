package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type MessageHandler func(ctx context.Context, msg jetstream.Msg) error

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Consumer{nc: nc, js: js}, nil
}

// subscription describes one durable pull consumer and how hard to
// drive it.
type subscription struct {
	stream  string
	config  jetstream.ConsumerConfig
	workers int
	label   string
}

// ConsumeFusionJobs pulls bracket-fusion jobs from the FUSION work
// queue. Fusion is long relative to capture, so AckWait is generous;
// MaxDeliver bounds redelivery of a job that keeps failing.
func (c *Consumer) ConsumeFusionJobs(ctx context.Context, consumerName string, handler MessageHandler, workerCount int) error {
	return c.subscribe(ctx, subscription{
		stream: FusionStreamName,
		config: jetstream.ConsumerConfig{
			Name:          consumerName,
			Durable:       consumerName,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       2 * time.Minute,
			MaxDeliver:    3,
			FilterSubject: FusionSubjectBase + ".>",
		},
		workers: workerCount,
		label:   "fusion job",
	}, handler)
}

// ConsumeEvents pulls capture events from the CAPTURES stream. Only
// new events matter; a restarted brain must not replay history to its
// WebSocket clients.
func (c *Consumer) ConsumeEvents(ctx context.Context, consumerName string, handler MessageHandler) error {
	return c.subscribe(ctx, subscription{
		stream: EventsStreamName,
		config: jetstream.ConsumerConfig{
			Name:          consumerName,
			Durable:       consumerName,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       10 * time.Second,
			MaxDeliver:    3,
			FilterSubject: EventsSubjectBase + ".>",
			DeliverPolicy: jetstream.DeliverNewPolicy,
		},
		workers: 1,
		label:   "capture event",
	}, handler)
}

func (c *Consumer) subscribe(ctx context.Context, sub subscription, handler MessageHandler) error {
	stream, err := c.js.Stream(ctx, sub.stream)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", sub.stream, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, sub.config)
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", sub.config.Name, err)
	}

	msgCh := make(chan jetstream.Msg, sub.workers*2)
	go c.fetchLoop(ctx, cons, sub, msgCh)
	for i := 0; i < sub.workers; i++ {
		go work(ctx, sub.label, i, msgCh, handler)
	}

	slog.Info("consumer started",
		"stream", sub.stream, "consumer", sub.config.Name, "workers", sub.workers)
	return nil
}

func (c *Consumer) fetchLoop(ctx context.Context, cons jetstream.Consumer, sub subscription, msgCh chan<- jetstream.Msg) {
	defer close(msgCh)
	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := cons.Fetch(sub.workers, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("fetch batch error", "stream", sub.stream, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for msg := range batch.Messages() {
			select {
			case msgCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func work(ctx context.Context, label string, workerID int, msgCh <-chan jetstream.Msg, handler MessageHandler) {
	for msg := range msgCh {
		if err := handler(ctx, msg); err != nil {
			slog.Error("process "+label, "worker", workerID, "error", err, "subject", msg.Subject())
			_ = msg.Nak()
			continue
		}
		_ = msg.Ack()
	}
}

func (c *Consumer) Close() {
	c.nc.Close()
}
