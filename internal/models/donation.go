package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts go over the wire as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// Status is the reconciliation state of a donation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccessful Status = "successful"
)

// AnonymousDonor is used when no donor name was supplied.
const AnonymousDonor = "Anonymous"

// Donation represents a donation document. Reference is the idempotency key
// shared with the payment provider and is unique across all donations.
type Donation struct {
	ID         string          `bson:"_id,omitempty" json:"id"`
	Reference  string          `bson:"reference" json:"reference"`
	DonorName  string          `bson:"donor_name" json:"donorName"`
	DonorEmail string          `bson:"donor_email" json:"donorEmail"`
	Amount     decimal.Decimal `bson:"amount" json:"amount"` // base currency unit
	Currency   string          `bson:"currency,omitempty" json:"currency,omitempty"`
	Status     Status          `bson:"status" json:"status"`
	CreatedAt  time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `bson:"updated_at" json:"updatedAt"`
	PaidAt     *time.Time      `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
}

// IsSuccessful reports whether the donation reached its terminal state.
func (d *Donation) IsSuccessful() bool {
	return d.Status == StatusSuccessful
}
