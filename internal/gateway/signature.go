package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/errors"
)

// SignedFieldNames enumerates exactly which fields are covered by the
// signature, in canonical order. The gateway echoes this list back.
const SignedFieldNames = "total_amount,transaction_uuid,product_code"

// Signer computes and verifies the keyed digest over the gateway's canonical
// message. The secret is server-held and never leaves this process; callers
// must not log it.
type Signer struct {
	secretKey   []byte
	productCode string
}

func NewSigner(secretKey, productCode string) *Signer {
	return &Signer{secretKey: []byte(secretKey), productCode: productCode}
}

// ProductCode returns the merchant product code signed into every message.
func (s *Signer) ProductCode() string {
	return s.productCode
}

// message builds the canonical byte string the digest is computed over. The
// field order and separators are fixed by the gateway's protocol.
func message(totalAmount, transactionUUID, productCode string) string {
	return fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, productCode)
}

// Sign computes the base64-encoded HMAC-SHA256 signature for a transaction.
func (s *Signer) Sign(totalAmount, transactionUUID string) (string, error) {
	if len(s.secretKey) == 0 {
		return "", errors.ErrSecretNotConfigured
	}
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(message(totalAmount, transactionUUID, s.productCode)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the digest from the supplied fields and compares it
// against the provided signature in constant time. Malformed input yields
// false, never an error: a webhook with a garbage signature is simply
// unauthenticated.
func (s *Signer) Verify(totalAmount, transactionUUID, signature string) bool {
	if len(s.secretKey) == 0 || signature == "" {
		return false
	}
	expected, err := s.Sign(totalAmount, transactionUUID)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
