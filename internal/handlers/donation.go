package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
	"github.com/markjakearzadon/givepay-gobackend/internal/paystack"
	"github.com/markjakearzadon/givepay-gobackend/internal/services"
	"github.com/markjakearzadon/givepay-gobackend/internal/store"
)

// MaxBodyBytes caps webhook and intent bodies.
const MaxBodyBytes = 1 << 20

type DonationHandler struct {
	donations *services.DonationService
	webhooks  *services.WebhookService
	verifier  *services.VerificationService
}

func NewDonationHandler(donations *services.DonationService, webhooks *services.WebhookService, verifier *services.VerificationService) *DonationHandler {
	return &DonationHandler{donations: donations, webhooks: webhooks, verifier: verifier}
}

func (h *DonationHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var req services.IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	intent, err := h.donations.CreateIntent(r.Context(), req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("Failed to create donation intent: %v", err)
		writeStoreError(w, err, "Failed to create donation")
		return
	}
	writeJSON(w, http.StatusCreated, intent)
}

// Webhook receives Paystack events. Only a bad signature or a storage
// failure is answered with an error status; everything else is acknowledged.
func (h *DonationHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	res, err := h.webhooks.Handle(r.Context(), body, r.Header.Get(paystack.SignatureHeader))
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	case err != nil:
		writeStoreError(w, err, "Webhook processing failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type totalResponse struct {
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

func (h *DonationHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.donations.Total(r.Context())
	if err != nil {
		log.Printf("Failed to compute donation total: %v", err)
		writeStoreError(w, err, "Failed to compute total")
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total, Currency: h.donations.Currency()})
}

// Dashboard lists every donation, newest first.
func (h *DonationHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	donations, err := h.donations.List(r.Context())
	if err != nil {
		log.Printf("Failed to fetch donations: %v", err)
		writeStoreError(w, err, "Failed to fetch donations")
		return
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	writeJSON(w, http.StatusOK, donations)
}

// Verify asks Paystack about one reference and reconciles a success.
func (h *DonationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	if reference == "" {
		writeError(w, http.StatusBadRequest, "Reference is required")
		return
	}
	log.Printf("Verification of %s requested by %s", reference, AdminFromContext(r.Context()))

	res, err := h.verifier.VerifyReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Donation store unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to verify with Paystack")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeStoreError maps storage outages to 503 so callers retry.
func writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "Donation store unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
