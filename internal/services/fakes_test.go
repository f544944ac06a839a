package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
	"github.com/markjakearzadon/givepay-gobackend/internal/store"
)

// scriptedStore delegates to an in-memory store unless a hook is set.
type scriptedStore struct {
	*store.MemoryStore
	find   func(ctx context.Context, reference string) (*models.Donation, error)
	insert func(ctx context.Context, d *models.Donation) error
	update func(ctx context.Context, d *models.Donation, from models.Status) error
	sum    func(ctx context.Context, status models.Status) (decimal.Decimal, error)
}

func newScriptedStore() *scriptedStore {
	return &scriptedStore{MemoryStore: store.NewMemoryStore()}
}

func (s *scriptedStore) FindByReference(ctx context.Context, reference string) (*models.Donation, error) {
	if s.find != nil {
		return s.find(ctx, reference)
	}
	return s.MemoryStore.FindByReference(ctx, reference)
}

func (s *scriptedStore) Insert(ctx context.Context, d *models.Donation) error {
	if s.insert != nil {
		return s.insert(ctx, d)
	}
	return s.MemoryStore.Insert(ctx, d)
}

func (s *scriptedStore) Update(ctx context.Context, d *models.Donation, from models.Status) error {
	if s.update != nil {
		return s.update(ctx, d, from)
	}
	return s.MemoryStore.Update(ctx, d, from)
}

func (s *scriptedStore) SumAmounts(ctx context.Context, status models.Status) (decimal.Decimal, error) {
	if s.sum != nil {
		return s.sum(ctx, status)
	}
	return s.MemoryStore.SumAmounts(ctx, status)
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []models.Donation
}

func (n *recordingNotifier) DonationConfirmed(d models.Donation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, d)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmed)
}

type fixedRefs struct {
	mu   sync.Mutex
	refs []string
	next int
}

func (f *fixedRefs) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := f.refs[f.next%len(f.refs)]
	f.next++
	return ref
}

type fakeVerifier struct {
	mu    sync.Mutex
	calls []string
	fn    func(reference string) (*paystack.Transaction, error)
}

func (f *fakeVerifier) VerifyTransaction(_ context.Context, reference string) (*paystack.Transaction, error) {
	f.mu.Lock()
	f.calls = append(f.calls, reference)
	f.mu.Unlock()
	return f.fn(reference)
}

func charge(ref string, minor int64) *paystack.Charge {
	return &paystack.Charge{
		Reference:   ref,
		Amount:      paystack.ToBaseUnits(minor),
		AmountMinor: minor,
		Currency:    "NGN",
		Email:       "ada@example.com",
		FirstName:   "Ada",
		LastName:    "Lovelace",
	}
}
