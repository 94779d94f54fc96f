package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultVisibilityTimeout is how long a received message stays hidden
// before it is offered to consumers again. Mirrors the SQS default.
const defaultVisibilityTimeout = 30 * time.Second

// MemoryQueue is a queueClient backed by an in-memory buffered channel, used
// in tests and single-process deployments. Received messages are held
// invisible until deleted; if the consumer never deletes one, it becomes
// receivable again after the visibility timeout, matching SQS redelivery.
type MemoryQueue struct {
	ch chan queueMessage

	mu         sync.Mutex
	inflight   map[string]inflightMessage
	visibility time.Duration
}

type inflightMessage struct {
	msg      queueMessage
	deadline time.Time
}

// NewMemoryQueue creates a MemoryQueue with the provided buffer capacity.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		ch:         make(chan queueMessage, buffer),
		inflight:   make(map[string]inflightMessage),
		visibility: defaultVisibilityTimeout,
	}
}

// Send enqueues a payload or blocks until ctx is done.
func (q *MemoryQueue) Send(ctx context.Context, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	msg := queueMessage{
		ID:            uuid.NewString(),
		Body:          body,
		ReceiptHandle: uuid.NewString(),
	}

	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message is available, ctx is done, or waitSeconds elapses.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}

	q.requeueExpired()

	var timer *time.Timer
	if waitSeconds > 0 {
		timer = time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
	}

	if timer == nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg := <-q.ch:
			return q.collect(ctx, msg, maxMessages), nil
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case msg := <-q.ch:
		return q.collect(ctx, msg, maxMessages), nil
	}
}

// Delete acknowledges a received message so it is never redelivered.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, receiptHandle)
	return nil
}

// requeueExpired returns messages whose visibility timeout lapsed to the
// channel. A full buffer leaves them inflight for a later sweep.
func (q *MemoryQueue) requeueExpired() {
	now := time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()
	for handle, entry := range q.inflight {
		if now.Before(entry.deadline) {
			continue
		}
		select {
		case q.ch <- entry.msg:
			delete(q.inflight, handle)
		default:
			return
		}
	}
}

func (q *MemoryQueue) collect(ctx context.Context, first queueMessage, max int) []queueMessage {
	messages := make([]queueMessage, 0, max)
	messages = append(messages, q.track(first))

	for len(messages) < max {
		select {
		case <-ctx.Done():
			return messages
		case msg := <-q.ch:
			messages = append(messages, q.track(msg))
		default:
			return messages
		}
	}
	return messages
}

func (q *MemoryQueue) track(msg queueMessage) queueMessage {
	q.mu.Lock()
	q.inflight[msg.ReceiptHandle] = inflightMessage{
		msg:      msg,
		deadline: time.Now().Add(q.visibility),
	}
	q.mu.Unlock()
	return msg
}
