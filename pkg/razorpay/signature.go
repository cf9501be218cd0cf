package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSignature returns the lowercase hex HMAC-SHA256 digest of payload.
func ComputeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the provided signature against the expected digest
// in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := ComputeSignature(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyCheckoutSignature validates the signature Razorpay checkout returns to
// the client, computed over "<order_id>|<payment_id>" with the key secret.
func VerifyCheckoutSignature(orderID, paymentID, signature, keySecret string) bool {
	payload := []byte(orderID + "|" + paymentID)
	return VerifySignature(payload, signature, keySecret)
}
