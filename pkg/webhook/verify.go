// Package webhook authenticates callbacks from the AI pipeline.
//
// A callback is accepted when it carries either a fresh HMAC signature over
// its timestamp and body, or the configured shared secret. A signed request
// may be delivered again unchanged inside the skew window; the job token it
// settles is single-use, so a repeat is a no-op downstream.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

const (
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderSignature = "X-Webhook-Signature"
	HeaderSecret    = "X-Webhook-Secret"

	signatureVersion = "v1"
	DefaultMaxSkew   = 5 * time.Minute
)

var (
	ErrMissingCredentials = errors.New("missing webhook signature or secret")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrInvalidSecret      = errors.New("invalid webhook secret")
	ErrStaleTimestamp     = errors.New("stale webhook timestamp")
	ErrNotConfigured      = errors.New("webhook verification is not configured")
)

// Sign returns the signature header value for body sent at timestamp.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp + "."))
	_, _ = mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body and rejects timestamps
// further than maxSkew from now in either direction.
func VerifySignature(secret, signature, timestamp string, body []byte, now time.Time, maxSkew time.Duration) error {
	if signature == "" || timestamp == "" {
		return ErrMissingCredentials
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}

	sent := time.Unix(ts, 0)
	if now.Sub(sent) > maxSkew || sent.Sub(now) > maxSkew {
		return ErrStaleTimestamp
	}

	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Verifier holds the configured credentials.
type Verifier struct {
	signingSecret string
	sharedSecret  string
	maxSkew       time.Duration
	now           func() time.Time
}

func NewVerifier(signingSecret, sharedSecret string, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	return &Verifier{
		signingSecret: signingSecret,
		sharedSecret:  sharedSecret,
		maxSkew:       maxSkew,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify authenticates one request. Signature headers win over the shared
// secret when both are present.
func (v *Verifier) Verify(headers func(string) string, body []byte) error {
	signature := headers(HeaderSignature)
	timestamp := headers(HeaderTimestamp)
	secret := headers(HeaderSecret)

	switch {
	case signature != "" || timestamp != "":
		if v.signingSecret == "" {
			return ErrNotConfigured
		}
		return VerifySignature(v.signingSecret, signature, timestamp, body, v.now(), v.maxSkew)

	case secret != "":
		if v.sharedSecret == "" {
			return ErrNotConfigured
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(v.sharedSecret)) != 1 {
			return ErrInvalidSecret
		}
		return nil
	}

	return ErrMissingCredentials
}
