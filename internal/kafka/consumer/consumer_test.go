package consumer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

type fakeSession struct {
	mu      sync.Mutex
	marked  []int64
	commits int
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return context.Background() }

func (s *fakeSession) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
}

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func TestNewValidatesArguments(t *testing.T) {
	log := zerolog.New(io.Discard)
	if _, err := New(nil, "group", true, log); err == nil {
		t.Fatal("expected error without brokers")
	}
	if _, err := New([]string{"localhost:9092"}, "", true, log); err == nil {
		t.Fatal("expected error without group id")
	}
}

func TestCommitMarksAndFlushesOnce(t *testing.T) {
	session := &fakeSession{}
	c := &Consumer{flushOnMark: true, logger: zerolog.New(io.Discard)}

	record := newRecord(&sarama.ConsumerMessage{Topic: "callbacks", Partition: 2, Offset: 41})
	record.session = session

	for i := 0; i < 2; i++ {
		if err := c.Commit(context.Background(), record); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	if len(session.marked) != 1 || session.marked[0] != 41 {
		t.Fatalf("expected offset 41 marked once, got %v", session.marked)
	}
	if session.commits != 1 {
		t.Fatalf("expected one flush, got %d", session.commits)
	}
}

func TestCommitWithoutFlushOnlyMarks(t *testing.T) {
	session := &fakeSession{}
	c := &Consumer{logger: zerolog.New(io.Discard)}

	record := newRecord(&sarama.ConsumerMessage{Offset: 7})
	record.session = session

	if err := c.Commit(context.Background(), record); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(session.marked) != 1 || session.commits != 0 {
		t.Fatalf("expected mark without flush, got marked=%v commits=%d", session.marked, session.commits)
	}
}

func TestCommitRejectsDetachedRecords(t *testing.T) {
	c := &Consumer{logger: zerolog.New(io.Discard)}

	if err := c.Commit(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil record")
	}
	if err := c.Commit(context.Background(), &Record{Topic: "callbacks"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestNewRecordCopiesMessage(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &sarama.ConsumerMessage{
		Topic:     "callbacks",
		Partition: 1,
		Offset:    9,
		Key:       []byte("E2E123"),
		Value:     []byte(`{"identifier":"E2E123"}`),
		Timestamp: ts,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("trace-id"), Value: []byte("abc")},
			{Key: nil, Value: []byte("ignored")},
			nil,
		},
	}

	record := newRecord(msg)
	msg.Value[0] = 'X'

	if string(record.Value) != `{"identifier":"E2E123"}` {
		t.Fatalf("record value aliases the message buffer: %q", record.Value)
	}
	if string(record.Key) != "E2E123" || record.Offset != 9 || record.Partition != 1 || !record.Timestamp.Equal(ts) {
		t.Fatalf("unexpected record %+v", record)
	}
	if len(record.Headers) != 1 || string(record.Headers["trace-id"]) != "abc" {
		t.Fatalf("unexpected headers %v", record.Headers)
	}
}

func TestSessionHandlerTracksReadiness(t *testing.T) {
	c := &Consumer{logger: zerolog.New(io.Discard)}
	h := &sessionHandler{consumer: c}

	if err := h.Setup(&fakeSession{}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !c.IsReady() {
		t.Fatal("expected ready after setup")
	}
	if err := h.Cleanup(&fakeSession{}); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if c.IsReady() {
		t.Fatal("expected not ready after cleanup")
	}
}
