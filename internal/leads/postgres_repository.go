package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository needs. Declared as an
// interface so tests can substitute pgxmock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

const leadColumns = `id, name, phone, email, address, source, status, homeowner,
	monthly_bill, timeline, interest_score, contact_attempts, last_contact,
	created_at, updated_at`

// Create inserts a new row with status=new.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO leads (id, name, phone, email, address, source, status, monthly_bill)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Phone),
		req.Email,
		strings.TrimSpace(req.Address),
		strings.TrimSpace(req.Source),
		StatusNew,
		req.MonthlyBill,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return &Lead{
		ID:          id.String(),
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		Email:       req.Email,
		Address:     strings.TrimSpace(req.Address),
		Source:      strings.TrimSpace(req.Source),
		Status:      StatusNew,
		MonthlyBill: req.MonthlyBill,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// GetByID fetches a lead by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1`, leadColumns)
	return r.scanLead(r.pool.QueryRow(ctx, query, id))
}

// GetByPhone fetches a lead by phone number.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE phone = $1`, leadColumns)
	return r.scanLead(r.pool.QueryRow(ctx, query, phone))
}

// FindByPhoneOrEmail is the intake dedup lookup.
func (r *PostgresRepository) FindByPhoneOrEmail(ctx context.Context, phone, email string) (*Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE phone = $1 OR ($2 <> '' AND lower(email) = lower($2))
		ORDER BY created_at
		LIMIT 1
	`, leadColumns)
	return r.scanLead(r.pool.QueryRow(ctx, query, phone, email))
}

// List returns leads newest first, honoring the filter, capped at 200 rows.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR source = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at <= $4)
		ORDER BY created_at DESC
		LIMIT $5
	`, leadColumns)

	rows, err := r.pool.Query(ctx, query, string(filter.Status), filter.Source, filter.From, filter.To, limit)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLeadFromRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list rows failed: %w", err)
	}
	return out, nil
}

// Update applies an admin partial update and returns the fresh row.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE leads SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			address = COALESCE($4, address),
			status = COALESCE($5, status),
			updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, leadColumns)
	return r.scanLead(r.pool.QueryRow(ctx, query, id, req.Name, req.Email, req.Address, req.Status))
}

// UpdateStatus sets the lead status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("leads: update status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// FillQualification writes only NULL columns via COALESCE so that a re-run of
// the same extraction never clobbers an existing value.
func (r *PostgresRepository) FillQualification(ctx context.Context, id string, facts QualificationFacts) (*Lead, error) {
	query := fmt.Sprintf(`
		UPDATE leads SET
			homeowner = COALESCE(homeowner, $2),
			monthly_bill = COALESCE(monthly_bill, $3),
			timeline = COALESCE(timeline, $4),
			interest_score = COALESCE(interest_score, $5),
			updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, leadColumns)
	return r.scanLead(r.pool.QueryRow(ctx, query, id, facts.Homeowner, facts.MonthlyBill, facts.Timeline, facts.InterestScore))
}

// SetQualification applies the dispatcher's authoritative update.
func (r *PostgresRepository) SetQualification(ctx context.Context, id string, upd QualificationUpdate) error {
	if !upd.Status.Valid() {
		return ErrInvalidStatus
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			homeowner = COALESCE($2, homeowner),
			monthly_bill = COALESCE($3, monthly_bill),
			timeline = COALESCE($4, timeline),
			interest_score = $5,
			status = $6,
			updated_at = now()
		WHERE id = $1
	`, id, upd.Homeowner, upd.MonthlyBill, upd.Timeline, upd.InterestScore, upd.Status)
	if err != nil {
		return fmt.Errorf("leads: set qualification failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// RecordContact bumps last_contact and, for outbound sends, contact_attempts.
// A single UPDATE keeps the increment atomic under concurrent jobs.
func (r *PostgresRepository) RecordContact(ctx context.Context, id string, outbound bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			contact_attempts = contact_attempts + CASE WHEN $2 THEN 1 ELSE 0 END,
			last_contact = now(),
			updated_at = now()
		WHERE id = $1
	`, id, outbound)
	if err != nil {
		return fmt.Errorf("leads: record contact failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanLead(row pgx.Row) (*Lead, error) {
	lead, err := scanLeadFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return lead, nil
}

func scanLeadFromRow(row rowScanner) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Address,
		&lead.Source,
		&lead.Status,
		&lead.Homeowner,
		&lead.MonthlyBill,
		&lead.Timeline,
		&lead.InterestScore,
		&lead.ContactAttempts,
		&lead.LastContact,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("leads: scan failed: %w", err)
	}
	return &lead, nil
}
