package worker

import (
	"context"

	"github.com/example/pixauto-notifier/internal/kafka/consumer"
)

// NewRecordFromConsumer copies rec into an engine Record bound to commit.
func NewRecordFromConsumer(rec *consumer.Record, commit func(context.Context) error) *Record {
	if rec == nil {
		return nil
	}
	return &Record{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       cloneBytes(rec.Key),
		Value:     cloneBytes(rec.Value),
		Timestamp: rec.Timestamp,
		Headers:   cloneHeaders(rec.Headers),
		commitFn:  commit,
	}
}
