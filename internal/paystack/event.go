package paystack

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EventChargeSuccess is the only event kind that moves money into a donation.
const EventChargeSuccess = "charge.success"

// MinorUnitExponent converts kobo (and other 1/100 units) to the base unit.
const MinorUnitExponent = 2

// ToBaseUnits converts an amount in minor units to the base unit exactly.
func ToBaseUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitExponent)
}

// ToMinorUnits converts a base-unit amount to minor units, truncating any
// precision below one minor unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(MinorUnitExponent).IntPart()
}

// Charge is a confirmed payment for a reference.
type Charge struct {
	Reference   string
	Amount      decimal.Decimal
	AmountMinor int64
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	PaidAt      time.Time
}

// DonorName joins the customer names, or returns "" when Paystack sent none.
func (c *Charge) DonorName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Event is a classified webhook. Charge is set only for charge.success.
type Event struct {
	Kind   string
	Charge *Charge
}

// Ignored reports whether the event carries nothing to reconcile.
func (e Event) Ignored() bool {
	return e.Charge == nil
}

// ParseError reports a webhook body that cannot be classified.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paystack: malformed event: %s: %v", e.Reason, e.Err)
	}
	return "paystack: malformed event: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

type customerPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type chargePayload struct {
	Reference string           `json:"reference"`
	Amount    *int64           `json:"amount"`
	Currency  string           `json:"currency"`
	Status    string           `json:"status"`
	PaidAt    string           `json:"paid_at"`
	Customer  *customerPayload `json:"customer"`
}

type eventPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Classify parses a verified webhook body. Unknown event kinds are returned
// as ignored events, not errors.
func Classify(body []byte) (Event, error) {
	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Event{}, &ParseError{Reason: "invalid json", Err: err}
	}
	if payload.Event == "" {
		return Event{}, &ParseError{Reason: "missing event kind"}
	}
	if payload.Event != EventChargeSuccess {
		return Event{Kind: payload.Event}, nil
	}
	if len(payload.Data) == 0 {
		return Event{}, &ParseError{Reason: "missing data"}
	}

	var data chargePayload
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return Event{}, &ParseError{Reason: "invalid charge data", Err: err}
	}
	charge, err := data.toCharge()
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: payload.Event, Charge: charge}, nil
}

func (p chargePayload) toCharge() (*Charge, error) {
	ref := strings.TrimSpace(p.Reference)
	if ref == "" {
		return nil, &ParseError{Reason: "missing reference"}
	}
	if p.Amount == nil {
		return nil, &ParseError{Reason: "missing amount"}
	}
	if *p.Amount < 0 {
		return nil, &ParseError{Reason: fmt.Sprintf("negative amount %d", *p.Amount)}
	}

	c := &Charge{
		Reference:   ref,
		Amount:      ToBaseUnits(*p.Amount),
		AmountMinor: *p.Amount,
		Currency:    p.Currency,
	}
	// paid_at is informational; an odd format must not drop a real payment
	if t, err := time.Parse(time.RFC3339Nano, p.PaidAt); err == nil {
		c.PaidAt = t.UTC()
	}
	if p.Customer != nil {
		c.Email = strings.TrimSpace(p.Customer.Email)
		c.FirstName = strings.TrimSpace(p.Customer.FirstName)
		c.LastName = strings.TrimSpace(p.Customer.LastName)
	}
	return c, nil
}
