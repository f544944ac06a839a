package services

import (
	"context"
	"errors"
	"log"

	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
)

// ErrUnauthorized means the webhook signature did not match the body.
var ErrUnauthorized = errors.New("invalid webhook signature")

// WebhookResult summarises how a delivery was handled. Every non-error
// result is acknowledged to Paystack.
type WebhookResult struct {
	Event      string  `json:"event,omitempty"`
	Ignored    bool    `json:"ignored,omitempty"`
	Malformed  bool    `json:"malformed,omitempty"`
	Reconciled *Result `json:"reconciled,omitempty"`
}

type WebhookService struct {
	secret     string
	reconciler *Reconciler
}

func NewWebhookService(secret string, reconciler *Reconciler) *WebhookService {
	return &WebhookService{secret: secret, reconciler: reconciler}
}

// Handle authenticates body, classifies it and reconciles charge.success
// events. Malformed and unrelated events are acknowledged without effect so
// the provider stops redelivering them.
func (s *WebhookService) Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !paystack.Verify(body, signature, s.secret) {
		log.Printf("security: rejected webhook with invalid signature (%d bytes)", len(body))
		return nil, ErrUnauthorized
	}

	event, err := paystack.Classify(body)
	if err != nil {
		log.Printf("Acknowledging malformed webhook: %v", err)
		return &WebhookResult{Malformed: true}, nil
	}
	if event.Ignored() {
		log.Printf("Ignoring webhook event %q", event.Kind)
		return &WebhookResult{Event: event.Kind, Ignored: true}, nil
	}

	res, err := s.reconciler.Reconcile(ctx, event.Charge)
	if err != nil {
		log.Printf("Webhook for %s not reconciled: %v", event.Charge.Reference, err)
		return nil, err
	}
	return &WebhookResult{Event: event.Kind, Reconciled: res}, nil
}
