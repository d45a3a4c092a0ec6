package webhooks

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestVerifier(secrets map[string]string, skew time.Duration, now time.Time) *Verifier {
	v := NewVerifier(secrets, skew, nil)
	v.now = func() time.Time { return now }
	return v
}

func TestVerifyAcceptsFreshValidSignature(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(map[string]string{"test": "s"}, 5*time.Minute, now)

	payload := []byte("{}")
	sig := Sign("s", payload)
	if !v.Verify(context.Background(), "test", payload, sig, now.Add(-time.Minute)) {
		t.Fatal("expected valid signature within the window to verify")
	}
}

func TestVerifyAcceptsUppercaseSignature(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(map[string]string{"test": "s"}, 5*time.Minute, now)

	payload := []byte("{}")
	sig := strings.ToUpper(Sign("s", payload))
	if !v.Verify(context.Background(), "test", payload, sig, now) {
		t.Fatal("expected signature comparison to be case-insensitive")
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(map[string]string{"test": "s"}, 5*time.Minute, now)

	payload := []byte("{}")
	sig := Sign("s", payload)
	if v.Verify(context.Background(), "test", payload, sig, now.Add(-10*time.Minute)) {
		t.Fatal("expected a 10 minute old request to be rejected despite a valid signature")
	}
	if v.Verify(context.Background(), "test", payload, sig, now.Add(10*time.Minute)) {
		t.Fatal("expected a far-future timestamp to be rejected")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(map[string]string{"test": "s"}, 5*time.Minute, now)

	payload := []byte("{}")
	sig := Sign("wrong", payload)
	if v.Verify(context.Background(), "test", payload, sig, now) {
		t.Fatal("expected a digest under the wrong secret to be rejected")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(map[string]string{"test": "s"}, 5*time.Minute, now)

	sig := Sign("s", []byte("{}"))
	if v.Verify(context.Background(), "test", []byte(`{"a":1}`), sig, now) {
		t.Fatal("expected a tampered payload to be rejected")
	}
}

func TestVerifyRejectsEmptySignature(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(map[string]string{"test": "s"}, 5*time.Minute, now)

	if v.Verify(context.Background(), "test", []byte("{}"), "", now) {
		t.Fatal("expected an empty signature to be rejected")
	}
}

func TestVerifyFallsBackToDevSecret(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(map[string]string{}, 5*time.Minute, now)

	payload := []byte("{}")
	if !v.Verify(context.Background(), "unconfigured", payload, Sign(DevSecret, payload), now) {
		t.Fatal("expected the development secret fallback for unconfigured providers")
	}
}
