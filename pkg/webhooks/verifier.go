package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/helpdeskhq/ticketflow-backend/pkg/logger"
)

// DevSecret is the fallback signing secret for providers with no configured
// secret. It exists so local environments work out of the box; every use is
// logged at warn level because a deployment relying on it accepts forged
// webhooks from anyone who reads this source.
const DevSecret = "dev-secret"

// Verifier checks webhook authenticity: an HMAC-SHA256 signature over the
// raw payload bytes plus a timestamp freshness window that bounds how long a
// captured, legitimately-signed request stays replayable.
type Verifier struct {
	secrets map[string]string
	skew    time.Duration
	now     func() time.Time
	logg    *logger.Logger
}

func NewVerifier(secrets map[string]string, skew time.Duration, logg *logger.Logger) *Verifier {
	if skew <= 0 {
		skew = 5 * time.Minute
	}
	return &Verifier{
		secrets: secrets,
		skew:    skew,
		now:     func() time.Time { return time.Now().UTC() },
		logg:    logg,
	}
}

// Verify reports whether signature is a valid lower-hex HMAC-SHA256 digest of
// payload under the provider's secret and claimedAt is within the replay
// window. The signature is matched case-insensitively in constant time.
func (v *Verifier) Verify(ctx context.Context, provider string, payload []byte, signature string, claimedAt time.Time) bool {
	if signature == "" {
		return false
	}
	age := v.now().Sub(claimedAt)
	if age < 0 {
		age = -age
	}
	if age > v.skew {
		return false
	}

	expected := Sign(v.secretFor(ctx, provider), payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Sign computes the lower-hex HMAC-SHA256 digest senders are expected to put
// in the signature header. Exported for tests and for outbound tooling that
// simulates providers.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *Verifier) secretFor(ctx context.Context, provider string) string {
	if secret, ok := v.secrets[provider]; ok && secret != "" {
		return secret
	}
	if v.logg != nil {
		v.logg.Warn(ctx, fmt.Sprintf("no webhook secret configured for provider %q, falling back to the development secret", provider))
	}
	return DevSecret
}
