// Package worker turns callback records consumed from Kafka into notification
// pipeline runs and reports one outcome per record.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/pixauto-notifier/internal/logger"
	"github.com/example/pixauto-notifier/internal/metrics"
	"github.com/example/pixauto-notifier/internal/models"
	"github.com/example/pixauto-notifier/internal/notification"
)

const traceHeader = "trace-id"

// Config holds the engine limits.
type Config struct {
	MsgMaxBytes int
	Concurrency int
}

// Record is a callback message handed to the engine.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	commitFn func(context.Context) error
}

// Clone returns a deep copy that keeps the commit binding.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Key = cloneBytes(r.Key)
	clone.Value = cloneBytes(r.Value)
	clone.Headers = cloneHeaders(r.Headers)
	return &clone
}

// Gate decides whether a callback is a notifiable PIX Automático event.
type Gate interface {
	ShouldNotify(eventType string) bool
	Classify(signals models.EventSignals) (models.CanonicalEvent, bool)
}

// Pipeline runs extraction, enrichment and dispatch for one callback.
type Pipeline interface {
	Run(ctx context.Context, identifier string, signals models.EventSignals) notification.Result
}

// OutcomePublisher reports the decision taken for each callback.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, event models.OutcomeEvent) error
}

// DLQPublisher receives callback records that cannot be decoded.
type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record models.DLQRecord) error
}

// Committer commits offsets for records without a bound commit function.
type Committer interface {
	Commit(ctx context.Context, record *Record) error
}

// Dependencies collects the engine collaborators. OutcomePublisher,
// DLQPublisher and Committer are optional.
type Dependencies struct {
	Gate             Gate
	Pipeline         Pipeline
	OutcomePublisher OutcomePublisher
	DLQPublisher     DLQPublisher
	Committer        Committer
	Logger           zerolog.Logger
	Now              func() time.Time
}

// Engine decodes callbacks, filters them and runs the pipeline with bounded
// concurrency. Every record is committed exactly once whatever its outcome;
// nothing is retried.
type Engine struct {
	cfg       Config
	gate      Gate
	pipeline  Pipeline
	outcomes  OutcomePublisher
	dlq       DLQPublisher
	committer Committer
	logger    zerolog.Logger
	now       func() time.Time

	sem *semaphore.Weighted
}

// NewEngine validates cfg and deps.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.Concurrency < 1 {
		return nil, errors.New("worker: concurrency must be >= 1")
	}
	if cfg.MsgMaxBytes < 0 {
		return nil, errors.New("worker: msg max bytes cannot be negative")
	}
	if deps.Gate == nil {
		return nil, errors.New("worker: gate dependency is required")
	}
	if deps.Pipeline == nil {
		return nil, errors.New("worker: pipeline dependency is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:       cfg,
		gate:      deps.Gate,
		pipeline:  deps.Pipeline,
		outcomes:  deps.OutcomePublisher,
		dlq:       deps.DLQPublisher,
		committer: deps.Committer,
		logger:    logger.Component(deps.Logger, "worker"),
		now:       now,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
	}, nil
}

// HandleRecord decodes record and either settles it inline (rejected or
// skipped) or starts the pipeline in a goroutine once a concurrency slot is
// free. It blocks only while waiting for a slot.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}
	started := e.now()

	event, err := e.decode(record)
	if err != nil {
		e.reject(ctx, record, event, err)
		return
	}

	signals := event.Signals()
	if !e.gate.ShouldNotify(event.EventType) {
		e.settle(ctx, record, e.outcome(event, started, models.OutcomeSkipped, "event type not notifiable", ""))
		return
	}
	canonical, ok := e.gate.Classify(signals)
	if !ok {
		e.settle(ctx, record, e.outcome(event, started, models.OutcomeSkipped, "unclassified event", ""))
		return
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		// Left uncommitted so the record is redelivered after a rebalance.
		e.logger.Warn().
			Err(err).
			Str("identifier", event.Identifier).
			Int64("offset", record.Offset).
			Msg("worker stopped before the callback could be processed")
		return
	}

	go e.process(ctx, record.Clone(), event, signals, canonical, started)
}

// Wait blocks until every in-flight callback has finished or ctx ends.
func (e *Engine) Wait(ctx context.Context) error {
	if err := e.sem.Acquire(ctx, int64(e.cfg.Concurrency)); err != nil {
		return err
	}
	e.sem.Release(int64(e.cfg.Concurrency))
	return nil
}

func (e *Engine) process(ctx context.Context, record *Record, event models.CallbackEvent, signals models.EventSignals, canonical models.CanonicalEvent, started time.Time) {
	defer e.sem.Release(1)

	// The run outlives the consumer session so shutdown and rebalances can
	// drain it; directory and provider timeouts bound it instead.
	res := e.pipeline.Run(context.WithoutCancel(ctx), event.Identifier, signals)

	out := e.outcome(event, started, models.OutcomeDispatched, "", canonical.String())
	if !res.Dispatched {
		out.Outcome = models.OutcomeNotSent
		out.Reason = res.Outcome
		if res.Reason != "" {
			out.Reason += ": " + res.Reason
		}
	}
	e.logger.Info().
		Str("identifier", event.Identifier).
		Str("event", canonical.String()).
		Str("outcome", out.Outcome).
		Str("trace_id", event.TraceID).
		Int("deliveries", len(res.Deliveries)).
		Msg("callback processed")
	e.settle(ctx, record, out)
}

func (e *Engine) decode(record *Record) (models.CallbackEvent, error) {
	var event models.CallbackEvent
	if e.cfg.MsgMaxBytes > 0 && len(record.Value) > e.cfg.MsgMaxBytes {
		return event, fmt.Errorf("payload exceeds maximum size: got %d bytes, limit %d bytes", len(record.Value), e.cfg.MsgMaxBytes)
	}
	if err := json.Unmarshal(record.Value, &event); err != nil {
		return event, fmt.Errorf("decode callback: %w", err)
	}
	event.Identifier = strings.TrimSpace(event.Identifier)
	event.EventType = strings.TrimSpace(event.EventType)
	if event.Identifier == "" {
		return event, errors.New("callback identifier is required")
	}
	if event.EventType == "" {
		return event, errors.New("callback event_type is required")
	}
	if event.TraceID == "" {
		event.TraceID = string(record.Headers[traceHeader])
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	return event, nil
}

func (e *Engine) reject(ctx context.Context, record *Record, event models.CallbackEvent, cause error) {
	e.logger.Warn().
		Err(cause).
		Str("topic", record.Topic).
		Int32("partition", record.Partition).
		Int64("offset", record.Offset).
		Msg("callback rejected")

	if e.dlq != nil {
		entry := models.DLQRecord{
			EventID:         event.EventID,
			Topic:           record.Topic,
			Partition:       record.Partition,
			Offset:          record.Offset,
			OriginalMessage: string(record.Value),
			LastError:       cause.Error(),
			FailedAt:        e.now().UTC(),
		}
		if err := e.dlq.PublishDLQ(ctx, entry); err != nil {
			e.logger.Error().Err(err).Int64("offset", record.Offset).Msg("failed to publish DLQ record")
		}
	}
	metrics.CallbacksTotal.WithLabelValues(models.OutcomeRejected).Inc()
	e.commit(ctx, record)
}

func (e *Engine) settle(ctx context.Context, record *Record, out models.OutcomeEvent) {
	if e.outcomes != nil {
		if err := e.outcomes.PublishOutcome(context.WithoutCancel(ctx), out); err != nil {
			e.logger.Error().
				Err(err).
				Str("identifier", out.Identifier).
				Str("outcome", out.Outcome).
				Msg("failed to publish outcome event")
		}
	}
	metrics.CallbacksTotal.WithLabelValues(out.Outcome).Inc()
	e.commit(ctx, record)
}

func (e *Engine) outcome(event models.CallbackEvent, started time.Time, outcome, reason, canonical string) models.OutcomeEvent {
	now := e.now()
	return models.OutcomeEvent{
		EventID:    event.EventID,
		Identifier: event.Identifier,
		EventType:  event.EventType,
		Canonical:  canonical,
		Outcome:    outcome,
		Reason:     reason,
		TraceID:    event.TraceID,
		Duration:   now.Sub(started).Milliseconds(),
		Timestamp:  now.UTC(),
	}
}

func (e *Engine) commit(ctx context.Context, record *Record) {
	var err error
	switch {
	case record.commitFn != nil:
		err = record.commitFn(ctx)
	case e.committer != nil:
		err = e.committer.Commit(ctx, record)
	default:
		return
	}
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Msg("failed to commit record offset")
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(headers))
	for k, v := range headers {
		out[k] = cloneBytes(v)
	}
	return out
}
