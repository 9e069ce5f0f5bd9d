package call

import (
	"math"
	"math/rand/v2"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Policy controls the retry loop of a single Execute call. It is an immutable
// value: attach one per call site and share freely across goroutines. The
// zero value is usable; unset fields take defaults.
type Policy struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// 1 means no retries. Default: 3
	MaxAttempts int

	// MinWait is the backoff before the first retry. Default: 100ms
	MinWait time.Duration

	// MaxWait caps the computed backoff between retries. It does not cap a
	// server-suggested wait. Default: 30s
	MaxWait time.Duration

	// Multiplier is the exponential backoff multiplier. Default: 2.0
	Multiplier float64

	// Jitter adds up to 25% randomness to computed backoff. Server-suggested
	// waits are never jittered. Default: false
	Jitter bool
}

// Validate rejects values a default cannot repair: negative waits, a
// multiplier below 1, or a MaxWait below MinWait. Zero fields are fine, they
// take defaults at execution time.
func (p Policy) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxAttempts, validation.Min(1)),
		validation.Field(&p.MinWait, validation.Min(time.Duration(0))),
		validation.Field(&p.MaxWait, validation.Min(p.MinWait)),
		validation.Field(&p.Multiplier, validation.Min(1.0)),
	)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.MinWait <= 0 {
		p.MinWait = 100 * time.Millisecond
	}
	if p.MaxWait <= 0 {
		p.MaxWait = 30 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2.0
	}
	return p
}

// delay computes the backoff after the given failed attempt (1-based).
func (p Policy) delay(attempt int) time.Duration {
	multiplier := math.Pow(p.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(p.MinWait) * multiplier)

	if delay > p.MaxWait {
		delay = p.MaxWait
	}

	if p.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}

	return delay
}
