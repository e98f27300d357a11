package worker

import (
	"context"

	"github.com/example/pixauto-notifier/internal/kafka/consumer"
)

// RecordCommitter commits consumer records.
type RecordCommitter interface {
	Commit(ctx context.Context, record *consumer.Record) error
}

// KafkaHandler adapts engine to the consumer callback, committing offsets
// through committer.
func KafkaHandler(engine *Engine, committer RecordCommitter) consumer.Handler {
	return func(ctx context.Context, rec *consumer.Record) error {
		if engine == nil || rec == nil {
			return nil
		}
		var commit func(context.Context) error
		if committer != nil {
			commit = func(c context.Context) error { return committer.Commit(c, rec) }
		}
		engine.HandleRecord(ctx, NewRecordFromConsumer(rec, commit))
		return nil
	}
}
