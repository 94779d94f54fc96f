package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// EscalationService emails operators when the engine hands a conversation to
// a human. One email per recipient; a partial failure still alerts the rest.
type EscalationService struct {
	sender     EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewEscalationService wires the operator alert channel. recipients must not
// be empty.
func NewEscalationService(sender EmailSender, recipients []string, logger *logging.Logger) *EscalationService {
	if sender == nil {
		panic("notify: email sender cannot be nil")
	}
	if len(recipients) == 0 {
		panic("notify: at least one recipient required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &EscalationService{sender: sender, recipients: recipients, logger: logger}
}

var _ conversation.EscalationNotifier = (*EscalationService)(nil)

// NotifyEscalation emails the lead fact sheet to every operator.
func (s *EscalationService) NotifyEscalation(ctx context.Context, lead *leads.Lead, reason string) error {
	subject := fmt.Sprintf("Lead needs human review: %s", lead.Name)
	body := escalationBody(lead, reason)

	var failed []string
	for _, to := range s.recipients {
		err := s.sender.Send(ctx, EmailMessage{
			To:      to,
			Subject: subject,
			Body:    body,
		})
		if err != nil {
			s.logger.Error("escalation email failed", "to", to, "lead_id", lead.ID, "error", err)
			failed = append(failed, to)
		}
	}

	if len(failed) == len(s.recipients) {
		return fmt.Errorf("notify: all escalation emails failed for lead %s", lead.ID)
	}
	return nil
}

func escalationBody(lead *leads.Lead, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A conversation was flagged for human review.\n\n")
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	fmt.Fprintf(&b, "Lead: %s\n", lead.Name)
	fmt.Fprintf(&b, "Phone: %s\n", lead.Phone)
	fmt.Fprintf(&b, "Address: %s\n", lead.Address)
	fmt.Fprintf(&b, "Status: %s\n", lead.Status)
	if lead.Homeowner != nil {
		fmt.Fprintf(&b, "Homeowner: %t\n", *lead.Homeowner)
	}
	if lead.MonthlyBill != nil {
		fmt.Fprintf(&b, "Monthly Bill: $%d\n", *lead.MonthlyBill)
	}
	if lead.InterestScore != nil {
		fmt.Fprintf(&b, "Interest Score: %d/10\n", *lead.InterestScore)
	}
	fmt.Fprintf(&b, "Contact Attempts: %d\n", lead.ContactAttempts)
	return b.String()
}
