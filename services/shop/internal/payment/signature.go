package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureVerifier проверяет подпись подтверждения оплаты:
// hex(HMAC-SHA256(secret, orderRef + "|" + paymentRef)).
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier создаёт проверку подписи с секретом шлюза.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Sign вычисляет подпись. Используется в тестах и при локальной отладке шлюза.
func (v *SignatureVerifier) Sign(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись за постоянное время.
func (v *SignatureVerifier) Verify(orderRef, paymentRef, signature string) bool {
	if len(v.secret) == 0 || orderRef == "" || paymentRef == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hmac.Equal(got, mac.Sum(nil))
}
