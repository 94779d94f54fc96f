package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/internal/observability/metrics"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

const (
	defaultWorkerCount   = 5
	defaultReceiveWait   = 10
	defaultReceiveBatch  = 5
	receiveErrorBackoff  = 2 * time.Second
	jobResultOK          = "ok"
	jobResultFailed      = "failed"
	jobResultRetried     = "retried"
	jobResultUndecodable = "undecodable"
)

// Handler processes one raw queue message body.
type Handler func(ctx context.Context, body string) error

// Worker drains one named queue with a pool of concurrent consumers.
type Worker struct {
	name        string
	queue       queueClient
	handler     Handler
	jobs        JobUpdater
	metrics     *metrics.EngineMetrics
	logger      *logging.Logger
	workerCount int
	waitSeconds int
	batchSize   int

	wg sync.WaitGroup
}

// WorkerOption customizes Worker behavior.
type WorkerOption func(*Worker)

// WithWorkerCount sets the number of concurrent consumers.
func WithWorkerCount(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.workerCount = n
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll duration per receive.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(w *Worker) {
		if seconds >= 0 {
			w.waitSeconds = seconds
		}
	}
}

// WithReceiveBatchSize sets the maximum messages fetched per receive.
func WithReceiveBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithWorkerMetrics attaches job counters.
func WithWorkerMetrics(m *metrics.EngineMetrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithJobUpdater attaches job status tracking. jobs may be nil.
func WithJobUpdater(jobs JobUpdater) WorkerOption {
	return func(w *Worker) {
		w.jobs = jobs
	}
}

// NewWorker builds a worker for one queue. name labels logs and metrics.
func NewWorker(name string, queue queueClient, handler Handler, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if name == "" {
		panic("conversation: worker name cannot be empty")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if handler == nil {
		panic("conversation: handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	w := &Worker{
		name:        name,
		queue:       queue,
		handler:     handler,
		logger:      logger,
		workerCount: defaultWorkerCount,
		waitSeconds: defaultReceiveWait,
		batchSize:   defaultReceiveBatch,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the consumer pool. Consumers exit when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting queue workers", "queue", w.name, "count", w.workerCount)
	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(ctx)
		}()
	}
}

// Wait blocks until all consumers have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		messages, err := w.queue.Receive(ctx, w.batchSize, w.waitSeconds)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("queue receive failed", "queue", w.name, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveErrorBackoff):
			}
			continue
		}

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

// handleMessage runs the handler and decides the message's fate. Transient
// failures leave the message for queue redelivery; everything else deletes it
// so poison messages cannot loop forever.
func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	jobID := peekJobID(msg.Body)

	err := w.handler(ctx, msg.Body)
	switch {
	case err == nil:
		w.metrics.ObserveJob(w.name, jobResultOK)
		w.markCompleted(ctx, jobID)
		w.deleteMessage(ctx, msg)

	case errors.As(err, new(*json.SyntaxError)) || errors.As(err, new(*json.UnmarshalTypeError)):
		w.logger.Error("dropping undecodable message", "queue", w.name, "error", err)
		w.metrics.ObserveJob(w.name, jobResultUndecodable)
		w.markFailed(ctx, jobID, err)
		w.deleteMessage(ctx, msg)

	case IsTransient(err):
		w.logger.Warn("transient job failure, leaving for redelivery",
			"queue", w.name, "job_id", jobID, "error", err)
		w.metrics.ObserveJob(w.name, jobResultRetried)

	case errors.Is(err, leads.ErrLeadNotFound), errors.Is(err, ErrMessageNotFound):
		w.logger.Error("job references missing record, dropping",
			"queue", w.name, "job_id", jobID, "error", err)
		w.metrics.ObserveJob(w.name, jobResultFailed)
		w.markFailed(ctx, jobID, err)
		w.deleteMessage(ctx, msg)

	default:
		w.logger.Warn("job failed, leaving for redelivery",
			"queue", w.name, "job_id", jobID, "error", err)
		w.metrics.ObserveJob(w.name, jobResultRetried)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, msg queueMessage) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete message", "queue", w.name, "message_id", msg.ID, "error", err)
	}
}

func (w *Worker) markCompleted(ctx context.Context, jobID string) {
	if w.jobs == nil || jobID == "" {
		return
	}
	if err := w.jobs.MarkCompleted(ctx, jobID); err != nil {
		w.logger.Warn("failed to mark job completed", "queue", w.name, "job_id", jobID, "error", err)
	}
}

func (w *Worker) markFailed(ctx context.Context, jobID string, jobErr error) {
	if w.jobs == nil || jobID == "" {
		return
	}
	if err := w.jobs.MarkFailed(ctx, jobID, jobErr.Error()); err != nil {
		w.logger.Warn("failed to mark job failed", "queue", w.name, "job_id", jobID, "error", err)
	}
}

func peekJobID(body string) string {
	var envelope struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return ""
	}
	return envelope.JobID
}

// Runner binds the engine's operations to their queues and runs all three
// consumer pools as a unit.
type Runner struct {
	workers []*Worker
	logger  *logging.Logger
}

// NewRunner wires an Engine to the named queues. opts apply to every worker.
func NewRunner(engine *Engine, queues Queues, logger *logging.Logger, opts ...WorkerOption) *Runner {
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	initial := NewWorker(QueueInitialContact, queues.InitialContact, func(ctx context.Context, body string) error {
		var job InitialContactJob
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			return err
		}
		return engine.StartContact(ctx, job.LeadID)
	}, logger, opts...)

	process := NewWorker(QueueAIProcess, queues.AIProcess, func(ctx context.Context, body string) error {
		var job ProcessMessageJob
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			return err
		}
		return engine.ProcessMessage(ctx, job.LeadID, job.MessageID)
	}, logger, opts...)

	reminders := NewWorker(QueueReminders, queues.Reminders, func(ctx context.Context, body string) error {
		var job ReminderJob
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			return err
		}
		return engine.SendReminder(ctx, job.LeadID, reminderQuietWindow)
	}, logger, opts...)

	return &Runner{workers: []*Worker{initial, process, reminders}, logger: logger}
}

const reminderQuietWindow = 4 * time.Hour

// Start launches all worker pools.
func (r *Runner) Start(ctx context.Context) {
	for _, w := range r.workers {
		w.Start(ctx)
	}
}

// Wait blocks until every worker pool has exited.
func (r *Runner) Wait() {
	for _, w := range r.workers {
		w.Wait()
	}
}
