package conversation

import (
	"context"
	"encoding/json"
)

// Action names the model may call. Exactly these three are declared on every
// completion request; anything else coming back is ignored as a logic error.
const (
	ActionQualifyLead     = "qualify_lead"
	ActionBookAppointment = "book_appointment"
	ActionMarkUnqualified = "mark_unqualified"
)

// ActionCall is a structured instruction returned by the model alongside or
// instead of free text.
type ActionCall struct {
	Name      string
	Arguments json.RawMessage
}

// TokenUsage reports model token consumption for observability.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// CompletionRequest is a provider-independent chat completion request. The
// three qualification actions are always declared; providers translate them
// to their own tool schema.
type CompletionRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// CompletionResult carries the model's reply and at most one action call.
type CompletionResult struct {
	Reply  string
	Action *ActionCall
	Usage  TokenUsage
}

// LLMClient is the completion service surface used by the engine.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// actionSchema describes one callable action in JSON Schema terms, shared by
// the provider clients.
type actionSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

var qualificationActions = []actionSchema{
	{
		Name: ActionQualifyLead,
		Description: "Call this function when you have determined the lead's homeowner status, monthly electric bill, " +
			"timeline, and interest level. This updates the lead record with qualification data.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"is_homeowner": {
					"type": "boolean",
					"description": "Whether the lead owns their home (true) or rents/leases (false)"
				},
				"monthly_bill": {
					"type": "number",
					"description": "Average monthly electric bill in dollars (e.g., 150 for $150/month)"
				},
				"timeline": {
					"type": "string",
					"enum": ["immediate", "3-6_months", "6-12_months", "exploring"],
					"description": "Timeline for going solar: immediate (now-3mo), 3-6_months, 6-12_months, or exploring (no timeline)"
				},
				"interest_level": {
					"type": "integer",
					"minimum": 1,
					"maximum": 10,
					"description": "Interest score 1-10 based on enthusiasm, budget, timeline. 8-10=hot, 5-7=warm, 1-4=cold"
				}
			},
			"required": ["is_homeowner"]
		}`),
	},
	{
		Name: ActionBookAppointment,
		Description: "Call this function when the lead wants to book a consultation appointment. " +
			"Only call after lead is qualified (homeowner + interested).",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"preferred_date": {
					"type": "string",
					"description": "Preferred date for appointment (e.g., 'next week', 'Monday', '2024-01-15')"
				},
				"preferred_time": {
					"type": "string",
					"description": "Preferred time slot (e.g., 'morning', 'afternoon', '2pm', 'flexible')"
				},
				"contact_method": {
					"type": "string",
					"enum": ["phone", "video"],
					"description": "Preferred consultation method: phone or video call"
				}
			},
			"required": ["contact_method"]
		}`),
	},
	{
		Name: ActionMarkUnqualified,
		Description: "Call this function when lead is NOT qualified for solar " +
			"(not a homeowner, very low bill <$50, or explicitly not interested).",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"reason": {
					"type": "string",
					"description": "Reason for disqualification (e.g., 'not_homeowner', 'bill_too_low', 'not_interested')"
				}
			},
			"required": ["reason"]
		}`),
	},
}
