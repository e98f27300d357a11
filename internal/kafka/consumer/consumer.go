// Package consumer delivers callback records from a Kafka consumer group with
// manual offset commits.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/example/pixauto-notifier/internal/logger"
)

const (
	clientID                = "pixauto-notifier"
	defaultSessionTimeout   = 30 * time.Second
	defaultHeartbeat        = 3 * time.Second
	defaultRebalanceTimeout = 30 * time.Second
	defaultRejoinBackoff    = time.Second
)

var (
	// ErrNoSession is returned when committing a record that was not
	// delivered by a live group session.
	ErrNoSession = errors.New("kafka consumer: record has no session")
	errNilRecord = errors.New("kafka consumer: record is required")
)

// Handler processes one record. Returned errors are logged; the offset is
// only advanced through Commit.
type Handler func(ctx context.Context, record *Record) error

// Option customises the consumer.
type Option func(*options)

type options struct {
	config  *sarama.Config
	backoff time.Duration
}

// WithConfig supplies a base sarama config. It is copied, and the commit
// mode chosen in New still applies.
func WithConfig(cfg *sarama.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithRejoinBackoff sets the pause between failed group sessions.
func WithRejoinBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.backoff = d
		}
	}
}

// Record is a Kafka message handed to a Handler.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	session sarama.ConsumerGroupSession
	message *sarama.ConsumerMessage
	done    atomic.Bool
}

// Consumer wraps a sarama consumer group.
type Consumer struct {
	group       sarama.ConsumerGroup
	groupID     string
	flushOnMark bool
	backoff     time.Duration
	logger      zerolog.Logger

	ready    atomic.Bool
	stopOnce sync.Once
	cancelMu sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	errsDone chan struct{}
}

// New joins groupID on brokers. With flushOnCommit set, auto-commit is off
// and every Commit flushes the marked offset synchronously.
func New(brokers []string, groupID string, flushOnCommit bool, log zerolog.Logger, opts ...Option) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka consumer: at least one broker is required")
	}
	if groupID == "" {
		return nil, errors.New("kafka consumer: group id is required")
	}

	settings := &options{backoff: defaultRejoinBackoff}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	var cfg *sarama.Config
	if settings.config != nil {
		copied := *settings.config
		cfg = &copied
	} else {
		cfg = defaultConfig()
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = !flushOnCommit
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: create consumer group: %w", err)
	}

	c := &Consumer{
		group:       group,
		groupID:     groupID,
		flushOnMark: flushOnCommit,
		backoff:     settings.backoff,
		logger:      logger.Component(log, "kafka_consumer").With().Str("group_id", groupID).Logger(),
		errsDone:    make(chan struct{}),
	}
	go c.drainErrors()
	return c, nil
}

// Consume runs group sessions for topics until ctx is cancelled or Close is
// called. Session failures are logged and the group is rejoined.
func (c *Consumer) Consume(ctx context.Context, topics []string, handler Handler) error {
	if len(topics) == 0 {
		return errors.New("kafka consumer: at least one topic is required")
	}
	if handler == nil {
		return errors.New("kafka consumer: handler is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()
	defer cancel()

	c.wg.Add(1)
	defer c.wg.Done()

	h := &sessionHandler{consumer: c, handle: handler}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error().Err(err).Strs("topics", topics).Msg("consumer group session failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
		}
	}
}

// Commit marks record as processed. Committing the same record twice is a
// no-op.
func (c *Consumer) Commit(_ context.Context, record *Record) error {
	if record == nil {
		return errNilRecord
	}
	if record.session == nil || record.message == nil {
		return ErrNoSession
	}
	if !record.done.CompareAndSwap(false, true) {
		return nil
	}
	record.session.MarkMessage(record.message, "")
	if c.flushOnMark {
		record.session.Commit()
	}
	return nil
}

// IsReady reports whether a group session is currently active.
func (c *Consumer) IsReady() bool {
	return c.ready.Load()
}

// Close leaves the group and waits for Consume to return.
func (c *Consumer) Close() error {
	var err error
	c.stopOnce.Do(func() {
		c.cancelMu.Lock()
		if c.cancel != nil {
			c.cancel()
		}
		c.cancelMu.Unlock()
		err = c.group.Close()
		c.wg.Wait()
		<-c.errsDone
	})
	return err
}

func (c *Consumer) drainErrors() {
	defer close(c.errsDone)
	for err := range c.group.Errors() {
		if err != nil {
			c.logger.Error().Err(err).Msg("kafka consumer error")
		}
	}
}

type sessionHandler struct {
	consumer *Consumer
	handle   Handler
}

func (h *sessionHandler) Setup(sarama.ConsumerGroupSession) error {
	h.consumer.ready.Store(true)
	h.consumer.logger.Info().Msg("consumer group session started")
	return nil
}

func (h *sessionHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.consumer.ready.Store(false)
	h.consumer.logger.Info().Msg("consumer group session ended")
	return nil
}

func (h *sessionHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		record := newRecord(msg)
		record.session = session
		if err := h.handle(session.Context(), record); err != nil {
			h.consumer.logger.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int32("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("callback handler failed")
		}
	}
	return nil
}

func newRecord(msg *sarama.ConsumerMessage) *Record {
	return &Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       cloneBytes(msg.Key),
		Value:     cloneBytes(msg.Value),
		Timestamp: msg.Timestamp,
		Headers:   headerMap(msg.Headers),
		message:   msg,
	}
}

func defaultConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = clientID
	cfg.Consumer.Group.Session.Timeout = defaultSessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = defaultHeartbeat
	cfg.Consumer.Group.Rebalance.Timeout = defaultRebalanceTimeout
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	return cfg
}

func cloneBytes(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	return append([]byte(nil), src...)
}

func headerMap(headers []*sarama.RecordHeader) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(headers))
	for _, h := range headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		out[string(h.Key)] = cloneBytes(h.Value)
	}
	return out
}
