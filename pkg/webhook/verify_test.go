package webhook

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func headerMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	body := []byte(`{"interviewId":"abc","success":true}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	good := Sign("secret", ts, body)

	tests := []struct {
		name      string
		secret    string
		signature string
		timestamp string
		body      []byte
		now       time.Time
		want      error
	}{
		{"valid", "secret", good, ts, body, now, nil},
		{"missing signature", "secret", "", ts, body, now, ErrMissingCredentials},
		{"bad timestamp", "secret", good, "yesterday", body, now, ErrInvalidSignature},
		{"stale", "secret", good, ts, body, now.Add(6 * time.Minute), ErrStaleTimestamp},
		{"from the future", "secret", good, ts, body, now.Add(-6 * time.Minute), ErrStaleTimestamp},
		{"tampered body", "secret", good, ts, []byte(`{"interviewId":"abc","success":false}`), now, ErrInvalidSignature},
		{"wrong secret", "other", good, ts, body, now, ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.signature, tt.timestamp, tt.body, tt.now, DefaultMaxSkew)
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestVerifier_AcceptsIdenticalRedelivery(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	v := NewVerifier("signing", "", time.Minute).WithClock(func() time.Time { return now })

	body := []byte(`{}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	h := headerMap(map[string]string{
		HeaderTimestamp: ts,
		HeaderSignature: Sign("signing", ts, body),
	})

	assert.NoError(t, v.Verify(h, body))
	assert.NoError(t, v.Verify(h, body))

	// The same signature outside the window is still refused.
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, v.Verify(h, body), ErrStaleTimestamp)
}

func TestVerifier_SharedSecret(t *testing.T) {
	v := NewVerifier("", "shared", 0)

	assert.NoError(t, v.Verify(headerMap(map[string]string{HeaderSecret: "shared"}), nil))
	assert.ErrorIs(t, v.Verify(headerMap(map[string]string{HeaderSecret: "guess"}), nil), ErrInvalidSecret)
	assert.ErrorIs(t, v.Verify(headerMap(nil), nil), ErrMissingCredentials)

	// Signature headers without a signing secret configured are refused.
	assert.ErrorIs(t, v.Verify(headerMap(map[string]string{HeaderSignature: "v1=00", HeaderTimestamp: "1"}), nil), ErrNotConfigured)
}
