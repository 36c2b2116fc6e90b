package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// StateSigner produces and checks the anti-forgery state carried through
// the OAuth handshake. The signed form lives in a short-lived cookie; the
// bare state travels as the provider's state parameter.
type StateSigner struct {
	secret []byte
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// Generate returns a fresh state and its signed cookie form.
func (s *StateSigner) Generate() (state string, signed string) {
	state = uuid.New().String()
	return state, state + "." + s.sign(state)
}

// Verify checks the cookie signature and that the embedded state matches
// the state echoed back by the provider.
func (s *StateSigner) Verify(signed, state string) bool {
	value, sig, found := strings.Cut(signed, ".")
	if !found || value == "" || state == "" {
		return false
	}
	if value != state {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(s.sign(value)))
}

func (s *StateSigner) sign(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
