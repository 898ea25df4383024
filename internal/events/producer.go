// Package events publishes detected status changes to Kafka for downstream
// consumers (status boards, archives). Publishing is fire-and-forget and
// never blocks or fails the notification pipeline.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/rosenban/rosenban/internal/model"
)

// Publisher emits status-change events.
type Publisher interface {
	Start(ctx context.Context)
	Publish(ctx context.Context, change model.StatusChange) error
	Close()
}

type producer struct {
	asyncProducer sarama.AsyncProducer
	topic         string
	log           *slog.Logger
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewProducer wraps a sarama AsyncProducer. The producer is injected so the
// caller owns broker configuration and shutdown ordering.
func NewProducer(asyncProducer sarama.AsyncProducer, topic string, log *slog.Logger) Publisher {
	return &producer{
		asyncProducer: asyncProducer,
		topic:         topic,
		log:           log.With("layer", "events", "component", "producer"),
	}
}

// Start launches background handlers for the success and error channels.
func (p *producer) Start(ctx context.Context) {
	p.wg.Add(2)
	go p.handleSuccesses(ctx)
	go p.handleErrors(ctx)
}

func (p *producer) handleSuccesses(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case msg, ok := <-p.asyncProducer.Successes():
			if !ok {
				return
			}
			key, _ := msg.Key.Encode()
			p.log.Debug("change event delivered",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("key", string(key)))
		case <-ctx.Done():
			return
		}
	}
}

func (p *producer) handleErrors(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case err, ok := <-p.asyncProducer.Errors():
			if !ok {
				return
			}
			p.log.Error("change event delivery failed",
				slog.String("topic", err.Msg.Topic),
				slog.Any("error", err.Err))
		case <-ctx.Done():
			return
		}
	}
}

// Publish queues one change event keyed by line id, so changes for the same
// line land on the same partition in order.
func (p *producer) Publish(ctx context.Context, change model.StatusChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(change.LineID),
		Value:     sarama.ByteEncoder(data),
		Headers:   injectTraceContext(ctx, nil),
		Timestamp: time.Now(),
	}

	select {
	case p.asyncProducer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the producer down and waits for the handlers to drain.
func (p *producer) Close() {
	p.closeOnce.Do(func() {
		p.asyncProducer.AsyncClose()
		p.wg.Wait()
		p.log.Info("change event producer closed")
	})
}

// NopPublisher is used when no brokers are configured; events are dropped
// silently and the rest of the pipeline is unaffected.
type NopPublisher struct{}

func (NopPublisher) Start(context.Context) {}

func (NopPublisher) Publish(context.Context, model.StatusChange) error { return nil }

func (NopPublisher) Close() {}
