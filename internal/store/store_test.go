package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
)

func newDonation(ref string, amount string, status models.Status, created time.Time) *models.Donation {
	return &models.Donation{
		Reference:  ref,
		DonorName:  models.AnonymousDonor,
		DonorEmail: "a@b.com",
		Amount:     decimal.RequireFromString(amount),
		Status:     status,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

// runStoreContract exercises behaviour every Store implementation must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("insert and find", func(t *testing.T) {
		s := newStore(t)
		d := newDonation("R1", "1000", models.StatusPending, base)
		if err := s.Insert(ctx, d); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if d.ID == "" {
			t.Fatal("insert must assign an id")
		}
		got, err := s.FindByReference(ctx, "R1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Status != models.StatusPending || !got.Amount.Equal(decimal.NewFromInt(1000)) || got.DonorEmail != "a@b.com" {
			t.Fatalf("unexpected donation %+v", got)
		}
	})

	t.Run("find missing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.FindByReference(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate reference rejected", func(t *testing.T) {
		s := newStore(t)
		if err := s.Insert(ctx, newDonation("R1", "10", models.StatusPending, base)); err != nil {
			t.Fatalf("insert: %v", err)
		}
		err := s.Insert(ctx, newDonation("R1", "20", models.StatusSuccessful, base))
		if !errors.Is(err, ErrDuplicateReference) {
			t.Fatalf("expected ErrDuplicateReference, got %v", err)
		}
	})

	t.Run("concurrent inserts of one reference", func(t *testing.T) {
		s := newStore(t)
		const workers = 16
		var ok, dup atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Insert(ctx, newDonation("RACE", "5", models.StatusSuccessful, base))
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, ErrDuplicateReference):
					dup.Add(1)
				default:
					t.Errorf("unexpected insert error: %v", err)
				}
			}()
		}
		wg.Wait()
		if ok.Load() != 1 || dup.Load() != workers-1 {
			t.Fatalf("expected exactly one insert to win, ok=%d dup=%d", ok.Load(), dup.Load())
		}
	})

	t.Run("update guarded by status", func(t *testing.T) {
		s := newStore(t)
		if err := s.Insert(ctx, newDonation("R1", "1000", models.StatusPending, base)); err != nil {
			t.Fatalf("insert: %v", err)
		}
		paid := base.Add(time.Minute)
		upd := newDonation("R1", "999.50", models.StatusSuccessful, base)
		upd.UpdatedAt = paid
		upd.PaidAt = &paid
		if err := s.Update(ctx, upd, models.StatusPending); err != nil {
			t.Fatalf("update: %v", err)
		}
		if err := s.Update(ctx, upd, models.StatusPending); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second guarded update should match nothing, got %v", err)
		}
		got, err := s.FindByReference(ctx, "R1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Status != models.StatusSuccessful || !got.Amount.Equal(decimal.RequireFromString("999.50")) || got.PaidAt == nil {
			t.Fatalf("update not applied: %+v", got)
		}
		if err := s.Update(ctx, newDonation("nope", "1", models.StatusSuccessful, base), models.StatusPending); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for unknown reference, got %v", err)
		}
	})

	t.Run("sum and list", func(t *testing.T) {
		s := newStore(t)
		total, err := s.SumAmounts(ctx, models.StatusSuccessful)
		if err != nil || !total.IsZero() {
			t.Fatalf("empty store total = %s, %v", total, err)
		}
		for i, d := range []*models.Donation{
			newDonation("A", "10.10", models.StatusSuccessful, base.Add(-3*time.Hour)),
			newDonation("B", "20.20", models.StatusPending, base.Add(-2*time.Hour)),
			newDonation("C", "0.05", models.StatusSuccessful, base.Add(-1*time.Hour)),
		} {
			if err := s.Insert(ctx, d); err != nil {
				t.Fatalf("insert %d: %v", i, err)
			}
		}

		successful, err := s.SumAmounts(ctx, models.StatusSuccessful)
		if err != nil || !successful.Equal(decimal.RequireFromString("10.15")) {
			t.Fatalf("successful total = %s, %v", successful, err)
		}
		all, err := s.SumAmounts(ctx, "")
		if err != nil || !all.Equal(decimal.RequireFromString("30.35")) {
			t.Fatalf("overall total = %s, %v", all, err)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 3 || list[0].Reference != "C" || list[2].Reference != "A" {
			t.Fatalf("expected newest first, got %v", references(list))
		}

		pending, err := s.ListPending(ctx, base, 10)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		if len(pending) != 1 || pending[0].Reference != "B" {
			t.Fatalf("expected only B pending, got %v", references(pending))
		}
		if none, _ := s.ListPending(ctx, base.Add(-150*time.Minute), 10); len(none) != 0 {
			t.Fatalf("cutoff should exclude B, got %v", references(none))
		}
	})
}

func references(ds []models.Donation) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Reference
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.FindByReference(ctx, "R1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := s.Insert(ctx, newDonation("R1", "1", models.StatusPending, time.Now())); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
