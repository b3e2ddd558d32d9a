package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// UnsubscribeSigner produces and checks the sig parameter of unsubscribe links.
type UnsubscribeSigner struct {
	secret  []byte
	siteURL string
}

func NewUnsubscribeSigner(secretKey, siteURL string) *UnsubscribeSigner {
	return &UnsubscribeSigner{secret: []byte(secretKey), siteURL: siteURL}
}

// Sign returns hex(HMAC-SHA256(email, secret)) for a normalized email.
func (s *UnsubscribeSigner) Sign(email string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(email))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *UnsubscribeSigner) Verify(email, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(email))
	return hmac.Equal(mac.Sum(nil), want)
}

// URL builds the signed one-click unsubscribe link for email.
func (s *UnsubscribeSigner) URL(email string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("sig", s.Sign(email))
	return s.siteURL + "/unsubscribe?" + q.Encode()
}
