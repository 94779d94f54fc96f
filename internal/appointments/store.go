package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence surface for appointments.
type Store interface {
	Create(ctx context.Context, req CreateRequest) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByLead(ctx context.Context, leadID string) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// MemoryStore is a Store backed by a map, used in tests and local
// development without Postgres.
type MemoryStore struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{appointments: make(map[string]*Appointment)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, req CreateRequest) (*Appointment, error) {
	if req.LeadID == "" {
		return nil, ErrMissingLead
	}

	now := time.Now().UTC()
	appt := &Appointment{
		ID:            uuid.NewString(),
		LeadID:        req.LeadID,
		Status:        StatusScheduled,
		ContactMethod: req.ContactMethod,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.appointments[appt.ID] = appt
	s.mu.Unlock()

	clone := *appt
	return &clone, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *appt
	return &clone, nil
}

func (s *MemoryStore) ListByLead(_ context.Context, leadID string) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Appointment
	for _, appt := range s.appointments {
		if appt.LeadID == leadID {
			clone := *appt
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return ErrNotFound
	}
	appt.Status = status
	appt.UpdatedAt = time.Now().UTC()
	return nil
}
