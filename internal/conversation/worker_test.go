package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayfield/solar-ai-platform/internal/leads"
)

// fakeQueue hands out a fixed set of messages once and records deletions.
type fakeQueue struct {
	mu       sync.Mutex
	pending  []queueMessage
	deleted  []string
	received bool
}

func (q *fakeQueue) Send(_ context.Context, body string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, queueMessage{ID: body, Body: body, ReceiptHandle: "rh-" + body})
	return nil
}

func (q *fakeQueue) Receive(ctx context.Context, _ int, _ int) ([]queueMessage, error) {
	q.mu.Lock()
	if !q.received {
		q.received = true
		msgs := q.pending
		q.mu.Unlock()
		return msgs, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *fakeQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) deletedHandles() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

func runWorkerOnce(t *testing.T, queue *fakeQueue, jobs JobUpdater, handler Handler) {
	t.Helper()
	w := NewWorker("test-queue", queue, handler, nil,
		WithWorkerCount(1),
		WithReceiveWaitSeconds(0),
		WithJobUpdater(jobs),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Start(ctx)

	// The fake queue blocks after its single batch; cancel once drained.
	time.Sleep(50 * time.Millisecond)
	cancel()
	w.Wait()
}

func TestWorkerCompletesJob(t *testing.T) {
	queue := &fakeQueue{}
	jobs := NewMemoryJobStore()
	require.NoError(t, jobs.PutPending(context.Background(), &JobRecord{JobID: "job-1", Queue: "test-queue", LeadID: "lead-1"}))
	require.NoError(t, queue.Send(context.Background(), `{"jobId":"job-1","leadId":"lead-1"}`))

	var handled []string
	var mu sync.Mutex
	runWorkerOnce(t, queue, jobs, func(_ context.Context, body string) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, body)
		return nil
	})

	assert.Len(t, handled, 1)
	assert.Len(t, queue.deletedHandles(), 1)

	record, err := jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, record.Status)
}

func TestWorkerLeavesTransientFailure(t *testing.T) {
	queue := &fakeQueue{}
	require.NoError(t, queue.Send(context.Background(), `{"jobId":"job-1"}`))

	runWorkerOnce(t, queue, nil, func(_ context.Context, _ string) error {
		return MarkTransient(errors.New("provider down"))
	})

	assert.Empty(t, queue.deletedHandles(), "transient failures stay queued for redelivery")
}

func TestWorkerDropsMissingRecordJob(t *testing.T) {
	queue := &fakeQueue{}
	jobs := NewMemoryJobStore()
	require.NoError(t, jobs.PutPending(context.Background(), &JobRecord{JobID: "job-1", Queue: "test-queue", LeadID: "lead-1"}))
	require.NoError(t, queue.Send(context.Background(), `{"jobId":"job-1","leadId":"lead-1"}`))

	runWorkerOnce(t, queue, jobs, func(_ context.Context, _ string) error {
		return fmt.Errorf("loading lead: %w", leads.ErrLeadNotFound)
	})

	assert.Len(t, queue.deletedHandles(), 1, "jobs for missing records are poison")

	record, err := jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, record.Status)
	assert.NotEmpty(t, record.ErrorMessage)
}

func TestWorkerDropsUndecodableMessage(t *testing.T) {
	queue := &fakeQueue{}
	require.NoError(t, queue.Send(context.Background(), `{not json`))

	runWorkerOnce(t, queue, nil, func(_ context.Context, body string) error {
		var job ProcessMessageJob
		return json.Unmarshal([]byte(body), &job)
	})

	assert.Len(t, queue.deletedHandles(), 1, "undecodable messages must not loop")
}

func TestRunnerRoutesJobs(t *testing.T) {
	f := newEngineFixture(t)
	queues := NewQueues(NewMemoryQueue(8), NewMemoryQueue(8), NewMemoryQueue(8))
	pub := NewPublisher(queues, nil)
	runner := NewRunner(f.engine, queues, nil, WithWorkerCount(1), WithReceiveWaitSeconds(0))

	_, err := pub.EnqueueInitialContact(context.Background(), f.lead.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)

	require.Eventually(t, func() bool {
		return len(f.messenger.sentBodies()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	runner.Wait()

	updated, err := f.repo.GetByID(context.Background(), f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, leads.StatusContacted, updated.Status)
}
