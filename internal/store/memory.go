package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
)

// MemoryStore keeps donations in a map keyed by reference. It is meant for
// local development and tests; data does not survive a restart.
type MemoryStore struct {
	mu        sync.Mutex
	donations map[string]models.Donation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{donations: make(map[string]models.Donation)}
}

func (s *MemoryStore) FindByReference(ctx context.Context, reference string) (*models.Donation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("find donation", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.donations[reference]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) Insert(ctx context.Context, d *models.Donation) error {
	if err := ctx.Err(); err != nil {
		return unavailable("insert donation", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.donations[d.Reference]; exists {
		return ErrDuplicateReference
	}
	d.ID = uuid.NewString()
	s.donations[d.Reference] = *d
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, d *models.Donation, from models.Status) error {
	if err := ctx.Err(); err != nil {
		return unavailable("update donation", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.donations[d.Reference]
	if !ok || current.Status != from {
		return ErrNotFound
	}
	current.Amount = d.Amount
	current.Status = d.Status
	current.UpdatedAt = d.UpdatedAt
	if d.Currency != "" {
		current.Currency = d.Currency
	}
	if d.PaidAt != nil {
		current.PaidAt = d.PaidAt
	}
	s.donations[d.Reference] = current
	return nil
}

func (s *MemoryStore) SumAmounts(ctx context.Context, status models.Status) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, unavailable("sum donations", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, d := range s.donations {
		if status == "" || d.Status == status {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Donation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list donations", err)
	}
	s.mu.Lock()
	out := make([]models.Donation, 0, len(s.donations))
	for _, d := range s.donations {
		out = append(out, d)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Donation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list pending donations", err)
	}
	s.mu.Lock()
	var out []models.Donation
	for _, d := range s.donations {
		if d.Status == models.StatusPending && d.CreatedAt.Before(olderThan) {
			out = append(out, d)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
