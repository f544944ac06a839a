package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
	"github.com/markjakearzadon/givepay-gobackend/internal/store"
)

// Outcome describes what a reconciliation did to the donation.
type Outcome string

const (
	// OutcomeCreated: no record existed, a successful donation was inserted.
	OutcomeCreated Outcome = "created"
	// OutcomeConfirmed: a pending donation moved to successful.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeDuplicate: the donation was already successful, nothing was written.
	OutcomeDuplicate Outcome = "duplicate"
)

// Result is returned by Reconcile.
type Result struct {
	Outcome        Outcome          `json:"outcome"`
	Donation       *models.Donation `json:"donation"`
	AmountAdjusted bool             `json:"amountAdjusted,omitempty"`
}

// Notifier is told about every donation that became successful.
type Notifier interface {
	DonationConfirmed(d models.Donation)
}

type noopNotifier struct{}

func (noopNotifier) DonationConfirmed(models.Donation) {}

// Reconciler applies confirmed charges to donations exactly once per
// reference. It holds no locks: the store's unique reference constraint and
// its status-guarded update decide races between concurrent deliveries.
type Reconciler struct {
	store    store.Store
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
}

func NewReconciler(st store.Store, notifier Notifier, timeout time.Duration) *Reconciler {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Reconciler{store: st, notifier: notifier, timeout: timeout, now: time.Now}
}

// Reconcile records charge against its reference. Duplicate deliveries return
// OutcomeDuplicate with a nil error. Store failures are returned so the
// provider retries.
func (r *Reconciler) Reconcile(ctx context.Context, charge *paystack.Charge) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	existing, err := r.store.FindByReference(ctx, charge.Reference)
	if errors.Is(err, store.ErrNotFound) {
		res, createErr := r.create(ctx, charge)
		if !errors.Is(createErr, store.ErrDuplicateReference) {
			return res, createErr
		}
		// another delivery inserted between our lookup and insert
		log.Printf("Concurrent delivery already recorded %s, re-reading", charge.Reference)
		existing, err = r.store.FindByReference(ctx, charge.Reference)
	}
	if err != nil {
		log.Printf("Failed to load donation %s: %v", charge.Reference, err)
		return nil, fmt.Errorf("reconcile %s: %w", charge.Reference, err)
	}
	return r.confirm(ctx, existing, charge)
}

func (r *Reconciler) create(ctx context.Context, charge *paystack.Charge) (*Result, error) {
	now := r.now().UTC()
	paidAt := r.paidAt(charge, now)

	name := charge.DonorName()
	if name == "" {
		name = models.AnonymousDonor
	}
	d := &models.Donation{
		Reference:  charge.Reference,
		DonorName:  name,
		DonorEmail: charge.Email,
		Amount:     charge.Amount,
		Currency:   charge.Currency,
		Status:     models.StatusSuccessful,
		CreatedAt:  now,
		UpdatedAt:  now,
		PaidAt:     &paidAt,
	}
	if err := r.store.Insert(ctx, d); err != nil {
		if errors.Is(err, store.ErrDuplicateReference) {
			return nil, err
		}
		log.Printf("Failed to record donation %s: %v", charge.Reference, err)
		return nil, fmt.Errorf("reconcile %s: %w", charge.Reference, err)
	}

	log.Printf("Donation recorded from webhook: reference=%s amount=%s", d.Reference, d.Amount)
	r.notifier.DonationConfirmed(*d)
	return &Result{Outcome: OutcomeCreated, Donation: d}, nil
}

func (r *Reconciler) confirm(ctx context.Context, existing *models.Donation, charge *paystack.Charge) (*Result, error) {
	switch existing.Status {
	case models.StatusSuccessful:
		log.Printf("Duplicate delivery for %s ignored", existing.Reference)
		return &Result{Outcome: OutcomeDuplicate, Donation: existing}, nil
	case models.StatusPending:
	default:
		return nil, fmt.Errorf("reconcile %s: unexpected status %q", existing.Reference, existing.Status)
	}

	now := r.now().UTC()
	paidAt := r.paidAt(charge, now)

	updated := *existing
	adjusted := !existing.Amount.Equal(charge.Amount)
	if adjusted {
		// the captured amount is what the payment rail actually settled
		log.Printf("Amount discrepancy for %s: intent=%s captured=%s, keeping captured",
			existing.Reference, existing.Amount, charge.Amount)
	}
	updated.Amount = charge.Amount
	updated.Status = models.StatusSuccessful
	updated.UpdatedAt = now
	updated.PaidAt = &paidAt
	if charge.Currency != "" {
		updated.Currency = charge.Currency
	}

	err := r.store.Update(ctx, &updated, models.StatusPending)
	if errors.Is(err, store.ErrNotFound) {
		// lost the race to a concurrent confirmation of the same reference
		current, findErr := r.store.FindByReference(ctx, existing.Reference)
		if findErr != nil {
			return nil, fmt.Errorf("reconcile %s: %w", existing.Reference, findErr)
		}
		if current.IsSuccessful() {
			log.Printf("Duplicate delivery for %s ignored after concurrent confirmation", current.Reference)
			return &Result{Outcome: OutcomeDuplicate, Donation: current}, nil
		}
		return nil, fmt.Errorf("reconcile %s: guarded update matched nothing while status is %q", current.Reference, current.Status)
	}
	if err != nil {
		log.Printf("Failed to confirm donation %s: %v", existing.Reference, err)
		return nil, fmt.Errorf("reconcile %s: %w", existing.Reference, err)
	}

	log.Printf("Donation confirmed: %s", updated.Reference)
	r.notifier.DonationConfirmed(updated)
	return &Result{Outcome: OutcomeConfirmed, Donation: &updated, AmountAdjusted: adjusted}, nil
}

func (r *Reconciler) paidAt(charge *paystack.Charge, now time.Time) time.Time {
	if charge.PaidAt.IsZero() {
		return now
	}
	return charge.PaidAt
}
