package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryMessageStore is a MessageStore backed by a slice, used in tests and
// local development without Postgres.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages []Message
}

// NewMemoryMessageStore creates an empty in-memory store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{}
}

var _ MessageStore = (*MemoryMessageStore)(nil)

func (s *MemoryMessageStore) Append(_ context.Context, leadID, body string, direction Direction, channel Channel, aiProcessed bool) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		ID:          uuid.NewString(),
		LeadID:      leadID,
		Channel:     channel,
		Direction:   direction,
		Body:        body,
		AIProcessed: aiProcessed,
		CreatedAt:   time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *MemoryMessageStore) GetByID(_ context.Context, messageID string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.messages {
		if s.messages[i].ID == messageID {
			msg := s.messages[i]
			return &msg, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (s *MemoryMessageStore) ListRecent(_ context.Context, leadID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = historyLimit
	}

	var out []Message
	for _, msg := range s.messages {
		if msg.LeadID == leadID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *MemoryMessageStore) CountByLead(_ context.Context, leadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, msg := range s.messages {
		if msg.LeadID == leadID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryMessageStore) CountOutboundVoice(_ context.Context, leadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, msg := range s.messages {
		if msg.LeadID == leadID && msg.Channel == ChannelVoice && msg.Direction == DirectionOutbound {
			count++
		}
	}
	return count, nil
}

func (s *MemoryMessageStore) MarkProcessed(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].AIProcessed = true
			return nil
		}
	}
	return ErrMessageNotFound
}
