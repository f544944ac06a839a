package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
	"github.com/markjakearzadon/givepay-gobackend/internal/store"
)

const intentAttempts = 3

// ValidationError reports a rejected intent field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ReferenceGenerator issues unique payment references.
type ReferenceGenerator interface {
	Generate() string
}

type IntentRequest struct {
	DonorName  string          `json:"donorName"`
	DonorEmail string          `json:"donorEmail" validate:"required,email"`
	Amount     decimal.Decimal `json:"amount" validate:"decimal_gt0,max2dp"`
}

// Intent is what the browser needs to open Paystack's inline checkout.
type Intent struct {
	Reference   string          `json:"reference"`
	PublicKey   string          `json:"publicKey"`
	Amount      decimal.Decimal `json:"amount"`
	AmountMinor int64           `json:"amountMinor"`
	Currency    string          `json:"currency"`
	DonorEmail  string          `json:"donorEmail"`
}

type DonationService struct {
	store     store.Store
	refs      ReferenceGenerator
	publicKey string
	currency  string
	timeout   time.Duration
	validate  *validator.Validate
	now       func() time.Time
}

func NewDonationService(st store.Store, refs ReferenceGenerator, publicKey, currency string, timeout time.Duration) *DonationService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DonationService{
		store:     st,
		refs:      refs,
		publicKey: publicKey,
		currency:  currency,
		timeout:   timeout,
		validate:  newValidator(),
		now:       time.Now,
	}
}

// CreateIntent validates req and records a pending donation under a fresh
// reference.
func (s *DonationService) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	req.DonorEmail = strings.TrimSpace(req.DonorEmail)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	name := strings.TrimSpace(req.DonorName)
	if name == "" {
		name = models.AnonymousDonor
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	d := &models.Donation{
		DonorName:  name,
		DonorEmail: req.DonorEmail,
		Amount:     req.Amount,
		Currency:   s.currency,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for attempt := 1; ; attempt++ {
		d.Reference = s.refs.Generate()
		err := s.store.Insert(ctx, d)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicateReference) || attempt == intentAttempts {
			log.Printf("Failed to save donation intent: %v", err)
			return nil, fmt.Errorf("create intent: %w", err)
		}
		log.Printf("Reference %s already taken, regenerating", d.Reference)
	}

	log.Printf("Donation intent created: reference=%s amount=%s", d.Reference, d.Amount)
	return &Intent{
		Reference:   d.Reference,
		PublicKey:   s.publicKey,
		Amount:      d.Amount,
		AmountMinor: paystack.ToMinorUnits(d.Amount),
		Currency:    s.currency,
		DonorEmail:  d.DonorEmail,
	}, nil
}

// Total sums successful donations only; pending intents are not money received.
func (s *DonationService) Total(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	total, err := s.store.SumAmounts(ctx, models.StatusSuccessful)
	if err != nil {
		return decimal.Zero, fmt.Errorf("donation total: %w", err)
	}
	return total, nil
}

func (s *DonationService) Currency() string {
	return s.currency
}

// List returns every donation, newest first.
func (s *DonationService) List(ctx context.Context) ([]models.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	donations, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}
