package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Queue names. Each queue carries exactly one payload shape; producer and
// consumer are co-deployed so payloads carry no version field.
const (
	QueueInitialContact = "initial-contact"
	QueueAIProcess      = "ai-process"
	QueueReminders      = "reminders"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// InitialContactJob triggers the first outbound SMS for a new lead.
type InitialContactJob struct {
	JobID  string `json:"jobId,omitempty"`
	LeadID string `json:"leadId"`
}

// ProcessMessageJob runs the engine over one inbound message.
type ProcessMessageJob struct {
	JobID     string `json:"jobId,omitempty"`
	LeadID    string `json:"leadId"`
	MessageID string `json:"messageId"`
}

// ReminderJob nudges a lead whose conversation has gone quiet.
type ReminderJob struct {
	JobID  string `json:"jobId,omitempty"`
	LeadID string `json:"leadId"`
}

// Queues bundles the three named queues the engine consumes.
type Queues struct {
	InitialContact queueClient
	AIProcess      queueClient
	Reminders      queueClient
}

// NewQueues groups three queue clients. Any of them may share a backend.
func NewQueues(initialContact, aiProcess, reminders queueClient) Queues {
	if initialContact == nil || aiProcess == nil || reminders == nil {
		panic("conversation: all queues are required")
	}
	return Queues{
		InitialContact: initialContact,
		AIProcess:      aiProcess,
		Reminders:      reminders,
	}
}

// Publisher enqueues engine jobs and records their pending status.
type Publisher struct {
	queues Queues
	jobs   JobRecorder
}

// NewPublisher builds a producer over the named queues. jobs may be nil to
// skip status tracking.
func NewPublisher(queues Queues, jobs JobRecorder) *Publisher {
	return &Publisher{queues: queues, jobs: jobs}
}

// EnqueueInitialContact schedules the greeting for a new lead.
func (p *Publisher) EnqueueInitialContact(ctx context.Context, leadID string) (string, error) {
	job := InitialContactJob{JobID: uuid.NewString(), LeadID: leadID}
	if err := p.publish(ctx, p.queues.InitialContact, QueueInitialContact, job.JobID, leadID, job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// EnqueueProcessMessage schedules an engine run for an inbound message.
func (p *Publisher) EnqueueProcessMessage(ctx context.Context, leadID, messageID string) (string, error) {
	job := ProcessMessageJob{JobID: uuid.NewString(), LeadID: leadID, MessageID: messageID}
	if err := p.publish(ctx, p.queues.AIProcess, QueueAIProcess, job.JobID, leadID, job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

// EnqueueReminder schedules a quiet-conversation nudge.
func (p *Publisher) EnqueueReminder(ctx context.Context, leadID string) (string, error) {
	job := ReminderJob{JobID: uuid.NewString(), LeadID: leadID}
	if err := p.publish(ctx, p.queues.Reminders, QueueReminders, job.JobID, leadID, job); err != nil {
		return "", err
	}
	return job.JobID, nil
}

func (p *Publisher) publish(ctx context.Context, queue queueClient, queueName, jobID, leadID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("conversation: failed to encode %s job: %w", queueName, err)
	}

	if p.jobs != nil {
		if err := p.jobs.PutPending(ctx, &JobRecord{JobID: jobID, Queue: queueName, LeadID: leadID}); err != nil {
			return err
		}
	}

	if err := queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("conversation: failed to enqueue %s job: %w", queueName, err)
	}
	return nil
}
