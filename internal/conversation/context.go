package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one entry in the model-facing transcript.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// LeadContext is the ephemeral working set for one engine invocation. It is
// rebuilt from committed state every time, never cached.
type LeadContext struct {
	Lead                  *leads.Lead
	History               []ChatMessage
	LastContact           *time.Time
	TotalMessages         int
	HasActiveConversation bool
}

// MessageStore is the persistence surface the context manager needs.
type MessageStore interface {
	Append(ctx context.Context, leadID, body string, direction Direction, channel Channel, aiProcessed bool) (*Message, error)
	GetByID(ctx context.Context, messageID string) (*Message, error)
	ListRecent(ctx context.Context, leadID string, limit int) ([]Message, error)
	CountByLead(ctx context.Context, leadID string) (int, error)
	CountOutboundVoice(ctx context.Context, leadID string) (int, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// ContextManager loads and persists conversation state for the engine.
type ContextManager struct {
	repo   leads.Repository
	store  MessageStore
	logger *logging.Logger
}

// NewContextManager wires the lead repository and message store together.
func NewContextManager(repo leads.Repository, store MessageStore, logger *logging.Logger) *ContextManager {
	if repo == nil {
		panic("conversation: leads repository cannot be nil")
	}
	if store == nil {
		panic("conversation: message store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ContextManager{repo: repo, store: store, logger: logger}
}

// GetContext loads the lead and its bounded history. Inbound rows become
// "user" messages, outbound rows "assistant" messages.
func (m *ContextManager) GetContext(ctx context.Context, leadID string) (*LeadContext, error) {
	lead, err := m.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	messages, err := m.store.ListRecent(ctx, leadID, historyLimit)
	if err != nil {
		return nil, err
	}

	history := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		role := ChatRoleAssistant
		if msg.Direction == DirectionInbound {
			role = ChatRoleUser
		}
		history = append(history, ChatMessage{
			Role:      role,
			Content:   msg.Body,
			Timestamp: msg.CreatedAt,
		})
	}

	total, err := m.store.CountByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	return &LeadContext{
		Lead:                  lead,
		History:               history,
		LastContact:           lead.LastContact,
		TotalMessages:         total,
		HasActiveConversation: len(history) > 0,
	}, nil
}

// StoreMessage appends a conversation row and refreshes the lead's contact
// bookkeeping. Outbound rows bump contact_attempts atomically.
func (m *ContextManager) StoreMessage(ctx context.Context, leadID, body string, direction Direction, channel Channel, aiProcessed bool) (*Message, error) {
	msg, err := m.store.Append(ctx, leadID, body, direction, channel, aiProcessed)
	if err != nil {
		return nil, err
	}

	if err := m.repo.RecordContact(ctx, leadID, direction == DirectionOutbound); err != nil {
		return nil, err
	}

	m.logger.Info("conversation message stored",
		"lead_id", leadID,
		"direction", direction,
		"channel", channel,
		"message_length", len(body),
	)
	return msg, nil
}

// FormatForModel renders [system, ...history] for the completion call.
func FormatForModel(lc *LeadContext, systemPrompt string) []ChatMessage {
	messages := make([]ChatMessage, 0, len(lc.History)+1)
	messages = append(messages, ChatMessage{Role: ChatRoleSystem, Content: systemPrompt})
	messages = append(messages, lc.History...)
	return messages
}

// Summarize renders a compact fact sheet used to ground the model prompt.
// Unknown fields are omitted rather than printed as placeholders.
func Summarize(lc *LeadContext) string {
	lead := lc.Lead

	parts := []string{
		fmt.Sprintf("Lead: %s", lead.Name),
		fmt.Sprintf("Address: %s", lead.Address),
		fmt.Sprintf("Source: %s", lead.Source),
	}

	if lead.Homeowner != nil {
		owner := "No"
		if *lead.Homeowner {
			owner = "Yes"
		}
		parts = append(parts, fmt.Sprintf("Homeowner: %s", owner))
	}
	if lead.MonthlyBill != nil {
		parts = append(parts, fmt.Sprintf("Monthly Bill: $%d", *lead.MonthlyBill))
	}
	if lead.Timeline != nil {
		parts = append(parts, fmt.Sprintf("Timeline: %s", *lead.Timeline))
	}
	if lead.InterestScore != nil {
		parts = append(parts, fmt.Sprintf("Interest Score: %d/10", *lead.InterestScore))
	}

	parts = append(parts,
		fmt.Sprintf("Status: %s", lead.Status),
		fmt.Sprintf("Total Messages: %d", lc.TotalMessages),
	)

	return strings.Join(parts, "\n")
}
