package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs, declared as an
// interface so tests can substitute pgxmock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments to the relational database.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

const apptColumns = `id, lead_id, status, contact_method, preferred_date, preferred_time,
	scheduled_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if req.LeadID == "" {
		return nil, ErrMissingLead
	}

	appt := &Appointment{
		ID:            uuid.NewString(),
		LeadID:        req.LeadID,
		Status:        StatusScheduled,
		ContactMethod: req.ContactMethod,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, lead_id, status, contact_method, preferred_date, preferred_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, appt.ID, appt.LeadID, appt.Status, appt.ContactMethod, appt.PreferredDate, appt.PreferredTime,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, apptColumns)

	var appt Appointment
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&appt.ID, &appt.LeadID, &appt.Status, &appt.ContactMethod,
		&appt.PreferredDate, &appt.PreferredTime, &appt.ScheduledAt,
		&appt.CreatedAt, &appt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: lookup failed: %w", err)
	}
	return &appt, nil
}

func (s *PostgresStore) ListByLead(ctx context.Context, leadID string) ([]*Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE lead_id = $1 ORDER BY created_at`, apptColumns)

	rows, err := s.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var appt Appointment
		if err := rows.Scan(
			&appt.ID, &appt.LeadID, &appt.Status, &appt.ContactMethod,
			&appt.PreferredDate, &appt.PreferredTime, &appt.ScheduledAt,
			&appt.CreatedAt, &appt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, &appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list rows failed: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("appointments: invalid status %q", status)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("appointments: update status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
