// Package publisher writes worker outcomes and dead letters to Kafka as JSON.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/models"
)

// ErrProducerNotInitialised is returned by publishers built without a producer.
var ErrProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer is the producer behaviour the publishers rely on.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

var jsonHeaders = map[string][]byte{"content-type": []byte("application/json")}

type topicWriter struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

func (w *topicWriter) write(kind, key string, v any) error {
	if w == nil || w.producer == nil {
		return ErrProducerNotInitialised
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal %s: %w", kind, err)
	}
	var k []byte
	if key != "" {
		k = []byte(key)
	}
	if err := w.producer.PublishSync(w.topic, k, jsonHeaders, payload); err != nil {
		return fmt.Errorf("kafka publisher: publish %s: %w", kind, err)
	}
	w.logger.Debug().Str("topic", w.topic).Str("key", key).Msgf("%s published", kind)
	return nil
}

// OutcomePublisher emits one OutcomeEvent per processed callback, keyed by
// the transaction identifier.
type OutcomePublisher struct {
	w *topicWriter
}

// NewOutcomePublisher returns nil when prod is nil.
func NewOutcomePublisher(prod SyncProducer, topic string, log zerolog.Logger) *OutcomePublisher {
	if prod == nil {
		return nil
	}
	return &OutcomePublisher{w: &topicWriter{producer: prod, topic: topic, logger: logger.Component(log, "outcome_publisher")}}
}

// PublishOutcome writes event synchronously.
func (p *OutcomePublisher) PublishOutcome(_ context.Context, event models.OutcomeEvent) error {
	if p == nil {
		return ErrProducerNotInitialised
	}
	return p.w.write("outcome event", event.Identifier, event)
}

// DLQPublisher writes callback records that could not be decoded.
type DLQPublisher struct {
	w *topicWriter
}

// NewDLQPublisher returns nil when prod is nil.
func NewDLQPublisher(prod SyncProducer, topic string, log zerolog.Logger) *DLQPublisher {
	if prod == nil {
		return nil
	}
	return &DLQPublisher{w: &topicWriter{producer: prod, topic: topic, logger: logger.Component(log, "dlq_publisher")}}
}

// PublishDLQ writes record synchronously, keyed by its event id when known.
func (p *DLQPublisher) PublishDLQ(_ context.Context, record models.DLQRecord) error {
	if p == nil {
		return ErrProducerNotInitialised
	}
	return p.w.write("dlq record", record.EventID, record)
}
