package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Paystack REST API root.
const DefaultBaseURL = "https://api.paystack.co"

// ErrTransactionNotFound is returned when Paystack has no transaction for a
// reference (the donor never completed checkout).
var ErrTransactionNotFound = errors.New("paystack: transaction not found")

// Transaction is the verified state of a reference on Paystack's side.
type Transaction struct {
	Reference string
	Status    string // success, failed, abandoned, ongoing, pending, reversed
	Charge    *Charge
}

// Succeeded reports whether the transaction captured money.
func (t *Transaction) Succeeded() bool {
	return t.Status == "success" && t.Charge != nil
}

type verifyResponse struct {
	Status  bool          `json:"status"`
	Message string        `json:"message"`
	Data    chargePayload `json:"data"`
}

// Client calls the Paystack transaction API.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewClient returns a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		attempts:   3,
		backoff:    time.Second,
	}
}

// VerifyTransaction asks Paystack for the current state of reference.
// Network failures and 5xx responses are retried.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		tx, retry, err := c.verifyOnce(ctx, endpoint, reference)
		if err == nil {
			return tx, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
		log.Printf("Paystack verify for %s failed (attempt %d): %v", reference, attempt, err)
		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("paystack verify failed after %d attempts: %w", c.attempts, lastErr)
}

func (c *Client) verifyOnce(ctx context.Context, endpoint, reference string) (*Transaction, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read verify response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrTransactionNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, false, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if !out.Status || resp.StatusCode != http.StatusOK {
		if strings.Contains(strings.ToLower(out.Message), "not found") {
			return nil, false, ErrTransactionNotFound
		}
		return nil, false, fmt.Errorf("paystack verify rejected (status %d): %s", resp.StatusCode, out.Message)
	}

	tx := &Transaction{Reference: reference, Status: out.Data.Status}
	if out.Data.Status == "success" {
		if out.Data.Reference == "" {
			out.Data.Reference = reference
		}
		charge, err := out.Data.toCharge()
		if err != nil {
			return nil, false, err
		}
		tx.Charge = charge
	}
	return tx, false, nil
}
