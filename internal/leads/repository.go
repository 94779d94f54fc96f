package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	GetByPhone(ctx context.Context, phone string) (*Lead, error)
	// FindByPhoneOrEmail is the intake dedup lookup. Email may be empty.
	FindByPhoneOrEmail(ctx context.Context, phone, email string) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
	Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	// FillQualification writes only the columns that are still NULL and
	// returns the resulting row. Re-applying the same facts is a no-op.
	FillQualification(ctx context.Context, id string, facts QualificationFacts) (*Lead, error)
	// SetQualification applies the dispatcher's authoritative update.
	SetQualification(ctx context.Context, id string, upd QualificationUpdate) error
	// RecordContact refreshes last_contact and, for outbound messages,
	// increments contact_attempts atomically.
	RecordContact(ctx context.Context, id string, outbound bool) error
}

// InMemoryRepository is a Repository backed by a map, used in tests and
// local development without Postgres.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

var _ Repository = (*InMemoryRepository)(nil)

// Create creates a new lead in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lead := &Lead{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Phone:       strings.TrimSpace(req.Phone),
		Email:       req.Email,
		Address:     strings.TrimSpace(req.Address),
		Source:      strings.TrimSpace(req.Source),
		Status:      StatusNew,
		MonthlyBill: req.MonthlyBill,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return copyLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return copyLead(lead), nil
}

// GetByPhone retrieves a lead by phone number
func (r *InMemoryRepository) GetByPhone(ctx context.Context, phone string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lead := range r.leads {
		if lead.Phone == phone {
			return copyLead(lead), nil
		}
	}
	return nil, ErrLeadNotFound
}

// FindByPhoneOrEmail returns the first lead matching phone or email.
func (r *InMemoryRepository) FindByPhoneOrEmail(ctx context.Context, phone, email string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lead := range r.leads {
		if lead.Phone == phone {
			return copyLead(lead), nil
		}
		if email != "" && lead.Email != nil && strings.EqualFold(*lead.Email, email) {
			return copyLead(lead), nil
		}
	}
	return nil, ErrLeadNotFound
}

// List returns leads newest first, honoring the filter.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	var out []*Lead
	for _, lead := range r.leads {
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		if filter.Source != "" && lead.Source != filter.Source {
			continue
		}
		if filter.From != nil && lead.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && lead.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, copyLead(lead))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Update applies an admin partial update.
func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if req.Name != nil {
		lead.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		lead.Email = req.Email
	}
	if req.Address != nil {
		lead.Address = strings.TrimSpace(*req.Address)
	}
	if req.Status != nil {
		lead.Status = *req.Status
	}
	lead.UpdatedAt = time.Now().UTC()
	return copyLead(lead), nil
}

// UpdateStatus sets the lead status.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// FillQualification writes only fields that are still unset.
func (r *InMemoryRepository) FillQualification(ctx context.Context, id string, facts QualificationFacts) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if lead.Homeowner == nil && facts.Homeowner != nil {
		lead.Homeowner = facts.Homeowner
	}
	if lead.MonthlyBill == nil && facts.MonthlyBill != nil {
		lead.MonthlyBill = facts.MonthlyBill
	}
	if lead.Timeline == nil && facts.Timeline != nil {
		lead.Timeline = facts.Timeline
	}
	if lead.InterestScore == nil && facts.InterestScore != nil {
		lead.InterestScore = facts.InterestScore
	}
	lead.UpdatedAt = time.Now().UTC()
	return copyLead(lead), nil
}

// SetQualification applies the dispatcher's update.
func (r *InMemoryRepository) SetQualification(ctx context.Context, id string, upd QualificationUpdate) error {
	if !upd.Status.Valid() {
		return ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	if upd.Homeowner != nil {
		homeowner := *upd.Homeowner
		lead.Homeowner = &homeowner
	}
	if upd.MonthlyBill != nil {
		lead.MonthlyBill = upd.MonthlyBill
	}
	if upd.Timeline != nil {
		lead.Timeline = upd.Timeline
	}
	score := upd.InterestScore
	lead.InterestScore = &score
	lead.Status = upd.Status
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordContact refreshes bookkeeping after a stored message.
func (r *InMemoryRepository) RecordContact(ctx context.Context, id string, outbound bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	if outbound {
		lead.ContactAttempts++
	}
	now := time.Now().UTC()
	lead.LastContact = &now
	lead.UpdatedAt = now
	return nil
}

func copyLead(lead *Lead) *Lead {
	clone := *lead
	if lead.Email != nil {
		v := *lead.Email
		clone.Email = &v
	}
	if lead.Homeowner != nil {
		v := *lead.Homeowner
		clone.Homeowner = &v
	}
	if lead.MonthlyBill != nil {
		v := *lead.MonthlyBill
		clone.MonthlyBill = &v
	}
	if lead.Timeline != nil {
		v := *lead.Timeline
		clone.Timeline = &v
	}
	if lead.InterestScore != nil {
		v := *lead.InterestScore
		clone.InterestScore = &v
	}
	if lead.LastContact != nil {
		v := *lead.LastContact
		clone.LastContact = &v
	}
	return &clone
}
