package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACTokenSigner signs token bodies with HMAC-SHA256 under a fixed key.
// Signatures are lowercase hex.
type HMACTokenSigner struct {
	key []byte
}

func NewHMACTokenSigner(secret string) *HMACTokenSigner {
	return &HMACTokenSigner{key: []byte(secret)}
}

func (s *HMACTokenSigner) Sign(body string) string {
	return hex.EncodeToString(s.mac(body))
}

// Verify decodes signature and compares it to the expected MAC in constant time.
func (s *HMACTokenSigner) Verify(body, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	return hmac.Equal(got, s.mac(body))
}

func (s *HMACTokenSigner) mac(body string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(body))
	return m.Sum(nil)
}
