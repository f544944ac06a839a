package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
	"github.com/markjakearzadon/givepay-gobackend/internal/store"
)

// TransactionVerifier looks up a reference on Paystack.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// VerifyResult is the outcome of checking one reference with Paystack.
type VerifyResult struct {
	Reference      string  `json:"reference"`
	ProviderStatus string  `json:"providerStatus"`
	Reconciled     *Result `json:"reconciled,omitempty"`
}

// VerificationService pulls transaction state from Paystack for references
// whose webhook may have been lost, and feeds successes to the Reconciler.
type VerificationService struct {
	store      store.Store
	verifier   TransactionVerifier
	reconciler *Reconciler
	timeout    time.Duration
}

func NewVerificationService(st store.Store, verifier TransactionVerifier, reconciler *Reconciler, timeout time.Duration) *VerificationService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &VerificationService{store: st, verifier: verifier, reconciler: reconciler, timeout: timeout}
}

// VerifyReference reconciles reference from Paystack's view of it. Already
// successful donations are reported without calling Paystack.
func (s *VerificationService) VerifyReference(ctx context.Context, reference string) (*VerifyResult, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	existing, err := s.store.FindByReference(lookupCtx, reference)
	cancel()
	switch {
	case err == nil && existing.IsSuccessful():
		return &VerifyResult{
			Reference:      reference,
			ProviderStatus: "success",
			Reconciled:     &Result{Outcome: OutcomeDuplicate, Donation: existing},
		}, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("verify %s: %w", reference, err)
	}

	tx, err := s.verifier.VerifyTransaction(ctx, reference)
	if errors.Is(err, paystack.ErrTransactionNotFound) {
		return &VerifyResult{Reference: reference, ProviderStatus: "not_found"}, nil
	}
	if err != nil {
		log.Printf("Failed to verify %s with Paystack: %v", reference, err)
		return nil, fmt.Errorf("verify %s: %w", reference, err)
	}
	if !tx.Succeeded() {
		return &VerifyResult{Reference: reference, ProviderStatus: tx.Status}, nil
	}

	res, err := s.reconciler.Reconcile(ctx, tx.Charge)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Reference: reference, ProviderStatus: tx.Status, Reconciled: res}, nil
}

// Sweeper periodically verifies donations that stayed pending longer than
// a webhook normally takes to arrive.
type Sweeper struct {
	store    store.Store
	verifier *VerificationService
	interval time.Duration
	after    time.Duration
	batch    int
	now      func() time.Time
}

func NewSweeper(st store.Store, verifier *VerificationService, interval, after time.Duration) *Sweeper {
	return &Sweeper{
		store:    st,
		verifier: verifier,
		interval: interval,
		after:    after,
		batch:    50,
		now:      time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	log.Printf("Pending donation sweeper running every %s for donations older than %s", s.interval, s.after)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				log.Printf("Sweep failed: %v", err)
			}
		}
	}
}

// SweepOnce checks one batch of stale pending donations and returns how many
// were confirmed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	pending, err := s.store.ListPending(ctx, s.now().Add(-s.after), s.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending donations: %w", err)
	}

	confirmed := 0
	for _, d := range pending {
		if ctx.Err() != nil {
			return confirmed, ctx.Err()
		}
		res, err := s.verifier.VerifyReference(ctx, d.Reference)
		if err != nil {
			log.Printf("Sweep could not verify %s: %v", d.Reference, err)
			continue
		}
		if res.Reconciled != nil && res.Reconciled.Outcome == OutcomeConfirmed {
			confirmed++
		}
	}
	if len(pending) > 0 {
		log.Printf("Sweep checked %d pending donations, confirmed %d", len(pending), confirmed)
	}
	return confirmed, nil
}

