package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rayfield/solar-ai-platform/internal/leads"
)

type recordingEmailSender struct {
	sent    []EmailMessage
	failFor map[string]error
}

func (r *recordingEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err, ok := r.failFor[msg.To]; ok {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func escalationLead() *leads.Lead {
	owner := true
	bill := 180
	return &leads.Lead{
		ID:          "lead-1",
		Name:        "Dana Ellis",
		Phone:       "+15550100",
		Address:     "12 Sunview Dr",
		Status:      leads.StatusContacted,
		Homeowner:   &owner,
		MonthlyBill: &bill,
	}
}

func TestNotifyEscalation(t *testing.T) {
	sender := &recordingEmailSender{}
	svc := NewEscalationService(sender, []string{"ops@example.com", "sales@example.com"}, nil)

	err := svc.NotifyEscalation(context.Background(), escalationLead(), "lead asked for a human")
	if err != nil {
		t.Fatalf("NotifyEscalation returned error: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if !strings.Contains(msg.Subject, "Dana Ellis") {
		t.Errorf("subject missing lead name: %q", msg.Subject)
	}
	for _, want := range []string{"lead asked for a human", "+15550100", "Monthly Bill: $180", "Homeowner: true"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestNotifyEscalationPartialFailure(t *testing.T) {
	sender := &recordingEmailSender{failFor: map[string]error{"ops@example.com": errors.New("bounce")}}
	svc := NewEscalationService(sender, []string{"ops@example.com", "sales@example.com"}, nil)

	if err := svc.NotifyEscalation(context.Background(), escalationLead(), "stalled"); err != nil {
		t.Fatalf("partial failure should not error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("expected 1 delivered email, got %d", len(sender.sent))
	}
}

func TestNotifyEscalationTotalFailure(t *testing.T) {
	sender := &recordingEmailSender{failFor: map[string]error{"ops@example.com": errors.New("down")}}
	svc := NewEscalationService(sender, []string{"ops@example.com"}, nil)

	if err := svc.NotifyEscalation(context.Background(), escalationLead(), "stalled"); err == nil {
		t.Fatal("expected error when every recipient fails")
	}
}

func TestStubEmailSender(t *testing.T) {
	sender := NewStubEmailSender(nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "x@example.com", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("stub sender should not error: %v", err)
	}
}
