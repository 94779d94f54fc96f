package conversation

import (
	"context"
	"time"

	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

const (
	defaultScanInterval = time.Hour
	scanBatchLimit      = 200
)

// ReminderScanner periodically enqueues reminder jobs for leads whose
// conversation has gone quiet. The engine re-checks the quiet window when it
// consumes the job, so a coarse scan here is safe.
type ReminderScanner struct {
	repo      leads.Repository
	publisher *Publisher
	quietFor  time.Duration
	interval  time.Duration
	logger    *logging.Logger
}

// NewReminderScanner builds the scanner. quietFor is how long a lead must be
// without contact before a nudge is due.
func NewReminderScanner(repo leads.Repository, publisher *Publisher, quietFor time.Duration, logger *logging.Logger) *ReminderScanner {
	if repo == nil {
		panic("conversation: reminder scanner requires a leads repository")
	}
	if publisher == nil {
		panic("conversation: reminder scanner requires a publisher")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderScanner{
		repo:      repo,
		publisher: publisher,
		quietFor:  quietFor,
		interval:  defaultScanInterval,
		logger:    logger,
	}
}

// Run scans on a fixed interval until ctx is cancelled. The first scan runs
// immediately.
func (s *ReminderScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Scan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan enqueues one reminder per due lead and returns how many were queued.
func (s *ReminderScanner) Scan(ctx context.Context) int {
	queued := 0
	for _, status := range []leads.Status{leads.StatusNew, leads.StatusContacted} {
		results, err := s.repo.List(ctx, leads.ListFilter{Status: status, Limit: scanBatchLimit})
		if err != nil {
			s.logger.Error("reminder scan failed", "status", string(status), "error", err)
			continue
		}
		for _, lead := range results {
			if !s.due(lead) {
				continue
			}
			if _, err := s.publisher.EnqueueReminder(ctx, lead.ID); err != nil {
				s.logger.Error("failed to enqueue reminder", "lead_id", lead.ID, "error", err)
				continue
			}
			queued++
		}
	}
	if queued > 0 {
		s.logger.Info("reminders queued", "count", queued)
	}
	return queued
}

// due reports whether a lead has been quiet long enough for a nudge. Leads
// never contacted at all are left for the initial-contact queue.
func (s *ReminderScanner) due(lead *leads.Lead) bool {
	if lead.LastContact == nil {
		return false
	}
	return time.Since(*lead.LastContact) >= s.quietFor
}
