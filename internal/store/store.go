// Package store persists donations. Every implementation enforces reference
// uniqueness inside the datastore itself, so concurrent webhook deliveries
// cannot both create the same donation.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
)

var (
	// ErrNotFound means no donation matched the lookup or update filter.
	ErrNotFound = errors.New("donation not found")
	// ErrDuplicateReference means the unique constraint on reference rejected an insert.
	ErrDuplicateReference = errors.New("duplicate donation reference")
	// ErrUnavailable wraps datastore failures that are worth retrying.
	ErrUnavailable = errors.New("donation store unavailable")
)

// Store is the persistence contract used by the services.
type Store interface {
	FindByReference(ctx context.Context, reference string) (*models.Donation, error)
	// Insert assigns d.ID. It returns ErrDuplicateReference when the reference exists.
	Insert(ctx context.Context, d *models.Donation) error
	// Update overwrites the mutable fields of the donation with d.Reference,
	// but only while its stored status is still from.
	Update(ctx context.Context, d *models.Donation, from models.Status) error
	// SumAmounts totals donations with the given status; "" sums everything.
	SumAmounts(ctx context.Context, status models.Status) (decimal.Decimal, error)
	// List returns every donation, newest first.
	List(ctx context.Context) ([]models.Donation, error)
	// ListPending returns up to limit pending donations created before olderThan, oldest first.
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Donation, error)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
