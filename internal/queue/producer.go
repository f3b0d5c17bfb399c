package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	FusionStreamName  = "FUSION"
	FusionSubjectBase = "fusion"
	EventsStreamName  = "CAPTURES"
	EventsSubjectBase = "captures"
)

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewProducer(natsURL string) (*Producer, error) {
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

	return &Producer{nc: nc, js: js}, nil
}

// EnsureStreams creates the FUSION work queue and the CAPTURES
// interest stream, retrying while the NATS server is still coming up.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	fusion := jetstream.StreamConfig{
		Name:        FusionStreamName,
		Subjects:    []string{FusionSubjectBase + ".>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      12 * time.Hour,
		MaxMsgs:     10000,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Duplicates:  30 * time.Second,
		Description: "Bracket fusion jobs for the fuser",
	}
	events := jetstream.StreamConfig{
		Name:        EventsStreamName,
		Subjects:    []string{EventsSubjectBase + ".>"},
		Retention:   jetstream.InterestPolicy,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     100000,
		Storage:     jetstream.FileStorage,
		Description: "Capture and fusion completion events",
	}

	for _, cfg := range []jetstream.StreamConfig{fusion, events} {
		if err := p.ensureStream(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Producer) ensureStream(ctx context.Context, cfg jetstream.StreamConfig) error {
	const maxAttempts = 30
	for attempt := 1; ; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s after %d attempts: %w", cfg.Name, maxAttempts, err)
		}
		slog.Warn("ensure NATS stream failed, retrying", "name", cfg.Name, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// PublishFusionJob enqueues one bracket for fusion.
func (p *Producer) PublishFusionJob(ctx context.Context, profileID string, job interface{}) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal fusion job: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", FusionSubjectBase, profileID)
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publish fusion job: %w", err)
	}
	return nil
}

// PublishCaptureEvent publishes a capture/fusion completion event.
func (p *Producer) PublishCaptureEvent(ctx context.Context, scheduleName string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal capture event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", EventsSubjectBase, scheduleName)
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publish capture event: %w", err)
	}
	return nil
}

// QueueDepth returns the number of pending fusion jobs.
func (p *Producer) QueueDepth(ctx context.Context) (uint64, error) {
	stream, err := p.js.Stream(ctx, FusionStreamName)
	if err != nil {
		return 0, err
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.State.Msgs, nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
