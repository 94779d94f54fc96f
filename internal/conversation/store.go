package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel is the medium a message travelled over.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelVoice Channel = "voice"
)

// Direction distinguishes lead messages from our own.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Message is one exchanged conversation row. Immutable once written except
// for the AIProcessed flag.
type Message struct {
	ID          string
	LeadID      string
	Channel     Channel
	Direction   Direction
	Body        string
	AIProcessed bool
	CreatedAt   time.Time
}

// historyLimit caps how many rows the context manager loads per lead.
const historyLimit = 50

// Store persists conversation rows to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore wraps the provided database handle.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("conversation: db cannot be nil")
	}
	return &Store{db: db}
}

// Append inserts a conversation row and returns it.
func (s *Store) Append(ctx context.Context, leadID, body string, direction Direction, channel Channel, aiProcessed bool) (*Message, error) {
	msg := &Message{
		ID:          uuid.NewString(),
		LeadID:      leadID,
		Channel:     channel,
		Direction:   direction,
		Body:        body,
		AIProcessed: aiProcessed,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, lead_id, channel, direction, message, ai_processed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, msg.ID, leadID, channel, direction, body, aiProcessed).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to insert message: %w", err)
	}
	return msg, nil
}

// GetByID fetches a single conversation row.
func (s *Store) GetByID(ctx context.Context, messageID string) (*Message, error) {
	var msg Message
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lead_id, channel, direction, message, ai_processed, created_at
		FROM conversations
		WHERE id = $1
	`, messageID).Scan(&msg.ID, &msg.LeadID, &msg.Channel, &msg.Direction, &msg.Body, &msg.AIProcessed, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load message: %w", err)
	}
	return &msg, nil
}

// ListRecent returns the most recent rows for a lead, ascending by creation
// time, capped at limit.
func (s *Store) ListRecent(ctx context.Context, leadID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = historyLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lead_id, channel, direction, message, ai_processed, created_at
		FROM (
			SELECT id, lead_id, channel, direction, message, ai_processed, created_at
			FROM conversations
			WHERE lead_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.LeadID, &msg.Channel, &msg.Direction, &msg.Body, &msg.AIProcessed, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: message rows failed: %w", err)
	}
	return messages, nil
}

// CountByLead returns the total number of rows for a lead.
func (s *Store) CountByLead(ctx context.Context, leadID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE lead_id = $1`, leadID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("conversation: failed to count messages: %w", err)
	}
	return count, nil
}

// CountOutboundVoice returns how many outbound voice attempts exist for a
// lead. Gates the hot-lead call cap.
func (s *Store) CountOutboundVoice(ctx context.Context, leadID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversations
		WHERE lead_id = $1 AND channel = $2 AND direction = $3
	`, leadID, ChannelVoice, DirectionOutbound).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("conversation: failed to count voice calls: %w", err)
	}
	return count, nil
}

// MarkProcessed flips the ai_processed flag on an inbound row.
func (s *Store) MarkProcessed(ctx context.Context, messageID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET ai_processed = TRUE WHERE id = $1`, messageID,
	)
	if err != nil {
		return fmt.Errorf("conversation: failed to mark message processed: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
