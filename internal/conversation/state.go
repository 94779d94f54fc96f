package conversation

import (
	"regexp"

	"github.com/rayfield/solar-ai-platform/internal/leads"
)

// FunnelState is the derived stage of a qualification conversation. It is
// recomputed from the lead's facts on every invocation, never stored, so it
// can never drift from the record.
type FunnelState string

const (
	StateNew        FunnelState = "new"
	StateQualifying FunnelState = "qualifying"
	StateQualified  FunnelState = "qualified"
	StateBooking    FunnelState = "booking"
	StateDead       FunnelState = "dead"
	StateComplete   FunnelState = "complete"
)

// StateAssessment is the classifier's verdict for one invocation.
type StateAssessment struct {
	State           FunnelState
	NeedsResponse   bool
	SuggestedAction string
}

// ClassifyState maps the lead's current facts to a funnel state. Rules are
// evaluated in order; the first match wins.
func ClassifyState(lc *LeadContext) StateAssessment {
	lead := lc.Lead

	if len(lc.History) == 0 {
		return StateAssessment{
			State:           StateNew,
			NeedsResponse:   true,
			SuggestedAction: "Send initial greeting and ask about home ownership",
		}
	}

	if lead.Status == leads.StatusAppointmentSet {
		return StateAssessment{
			State:           StateComplete,
			NeedsResponse:   false,
			SuggestedAction: "Wait for appointment confirmation",
		}
	}

	if (lead.Homeowner != nil && !*lead.Homeowner) || lead.Status == leads.StatusDead {
		return StateAssessment{
			State:           StateDead,
			NeedsResponse:   false,
			SuggestedAction: "No further action needed",
		}
	}

	if lead.Homeowner == nil || lead.MonthlyBill == nil || lead.Timeline == nil {
		return StateAssessment{
			State:           StateQualifying,
			NeedsResponse:   true,
			SuggestedAction: "Continue qualification questions",
		}
	}

	qualified := *lead.Homeowner && *lead.MonthlyBill >= 75

	if qualified && lead.InterestScore != nil && *lead.InterestScore >= HotLeadThreshold {
		return StateAssessment{
			State:           StateBooking,
			NeedsResponse:   true,
			SuggestedAction: "Offer appointment booking",
		}
	}

	if qualified {
		return StateAssessment{
			State:           StateQualified,
			NeedsResponse:   true,
			SuggestedAction: "Continue nurturing conversation",
		}
	}

	return StateAssessment{
		State:           StateQualifying,
		NeedsResponse:   true,
		SuggestedAction: "Ask next qualification question",
	}
}

var (
	complaintRe = regexp.MustCompile(`(?i)\b(complaint|problem|issue|technical|lawsuit|legal|scam|fraud)\b`)
	wantHumanRe = regexp.MustCompile(`(?i)\b(speak to|talk to|human|person|agent|representative|manager)\b`)
)

// stalledMessageCount is the message total past which an unqualified
// conversation gets handed to a human.
const stalledMessageCount = 15

// NeedsHumanEscalation reports whether the conversation should be taken out
// of automated handling: complaint or legal vocabulary in the last 3
// messages, an explicit ask for a human, or a long conversation that has not
// produced the two core facts.
func NeedsHumanEscalation(lc *LeadContext) bool {
	last := lc.History
	if len(last) > 3 {
		last = last[len(last)-3:]
	}

	for _, msg := range last {
		if complaintRe.MatchString(msg.Content) || wantHumanRe.MatchString(msg.Content) {
			return true
		}
	}

	if lc.TotalMessages > stalledMessageCount && lc.Lead.Homeowner == nil && lc.Lead.MonthlyBill == nil {
		return true
	}

	return false
}
