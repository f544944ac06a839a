// Package paystack holds the Paystack webhook contract: signature checks,
// event parsing and the transaction verification API.
package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// Sign returns the hex-encoded HMAC-SHA512 of body keyed by secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC of the exact bytes in body.
// It fails closed on any missing input.
func Verify(body []byte, signature, secret string) bool {
	if len(body) == 0 || signature == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
