package classify

import (
	"fmt"
	"strings"
	"time"
)

// Kind buckets a dependency failure by how the caller should react to it.
type Kind int

const (
	// KindTransient failures are expected to resolve on their own and are
	// worth retrying after a short backoff.
	KindTransient Kind = iota
	// KindRateLimited failures should be retried after the server-suggested
	// wait, or a longer floor than a generic transient failure.
	KindRateLimited
	// KindQuotaExceeded failures are retryable in principle, but only after a
	// long window; quota resets are typically daily or monthly.
	KindQuotaExceeded
	// KindPermanent failures will not resolve by retrying.
	KindPermanent
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate-limited"
	case KindQuotaExceeded:
		return "quota-exceeded"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Retryable reports whether failures of this kind are worth retrying.
func (k Kind) Retryable() bool {
	return k == KindTransient || k == KindRateLimited || k == KindQuotaExceeded
}

// RawFailure is the observation the HTTP-calling collaborator extracts from a
// failed call. A StatusCode of zero means the request never produced a
// response (connection failure, DNS error, and so on).
type RawFailure struct {
	// StatusCode is the HTTP status code, or 0 if no response was received.
	StatusCode int

	// RetryAfter is the raw Retry-After header value, empty if absent.
	RetryAfter string

	// BodyFields holds flattened error-body fields, e.g. "error.reason".
	BodyFields map[string]string

	// Err is the underlying error, if any.
	Err error
}

// Classified is the result of classification.
type Classified struct {
	// Kind is the failure bucket.
	Kind Kind

	// SuggestedWait is how long to wait before the next attempt.
	// Meaningful only when HasWait is true.
	SuggestedWait time.Duration

	// HasWait reports whether the classification carries a wait suggestion.
	HasWait bool

	// Underlying is the original error, never nil.
	Underlying error
}

// Config configures a Classifier.
type Config struct {
	// QuotaPhrases are case-insensitive substrings that mark an error body as
	// a quota-exhaustion condition. Default: quota, quotaexceeded,
	// dailyLimitExceeded, rate limit exceeded.
	QuotaPhrases []string

	// RateLimitFloor is the wait used for 429 responses without a parseable
	// Retry-After. Default: 60s
	RateLimitFloor time.Duration

	// UnavailableFloor is the wait used for 503 responses without a parseable
	// Retry-After. Default: 30s
	UnavailableFloor time.Duration

	// ServerErrorFloor is the wait used for other 5xx responses without a
	// parseable Retry-After. Default: 5s
	ServerErrorFloor time.Duration

	// QuotaWait is the wait suggested for quota-exhaustion failures.
	// Default: 24h
	QuotaWait time.Duration
}

// DefaultQuotaPhrases is the default quota detection phrase set.
var DefaultQuotaPhrases = []string{
	"quota",
	"quotaexceeded",
	"dailylimitexceeded",
	"rate limit exceeded",
}

// Classifier converts raw failure observations into Classified values.
// It is stateless and safe for concurrent use.
type Classifier struct {
	config Config
}

// New creates a Classifier with the given configuration.
func New(config Config) *Classifier {
	// Apply defaults
	if len(config.QuotaPhrases) == 0 {
		config.QuotaPhrases = DefaultQuotaPhrases
	}
	if config.RateLimitFloor <= 0 {
		config.RateLimitFloor = 60 * time.Second
	}
	if config.UnavailableFloor <= 0 {
		config.UnavailableFloor = 30 * time.Second
	}
	if config.ServerErrorFloor <= 0 {
		config.ServerErrorFloor = 5 * time.Second
	}
	if config.QuotaWait <= 0 {
		config.QuotaWait = 24 * time.Hour
	}

	phrases := make([]string, len(config.QuotaPhrases))
	for i, p := range config.QuotaPhrases {
		phrases[i] = strings.ToLower(p)
	}
	config.QuotaPhrases = phrases

	return &Classifier{config: config}
}

// Classify maps a raw failure to a Classified value. It is total: any input,
// including the zero RawFailure, produces exactly one result.
//
// Rules are applied in priority order: 429, 503, other 5xx, quota-indicating
// body, then everything with a status code is permanent. A missing status
// code (pure connection failure) is transient with no wait suggestion, so the
// caller's backoff policy decides.
func (c *Classifier) Classify(f RawFailure) Classified {
	err := f.Err
	if err == nil {
		if f.StatusCode > 0 {
			err = fmt.Errorf("dependency returned status %d", f.StatusCode)
		} else {
			err = fmt.Errorf("dependency call failed")
		}
	}

	switch {
	case f.StatusCode == 429:
		// Rate limiting always carries a wait: the header when the server
		// sent one, a conservative floor when it did not.
		return Classified{
			Kind:          KindRateLimited,
			SuggestedWait: parseRetryAfter(f.RetryAfter, c.config.RateLimitFloor),
			HasWait:       true,
			Underlying:    err,
		}

	case f.StatusCode == 503:
		return c.serverError(f, c.config.UnavailableFloor, err)

	case f.StatusCode >= 500:
		return c.serverError(f, c.config.ServerErrorFloor, err)
	}

	if c.quotaIndicated(f.BodyFields) {
		return Classified{
			Kind:          KindQuotaExceeded,
			SuggestedWait: c.config.QuotaWait,
			HasWait:       true,
			Underlying:    err,
		}
	}

	if f.StatusCode == 0 {
		return Classified{Kind: KindTransient, Underlying: err}
	}

	// 400, 401, 403, 404 and anything unrecognized: fail closed, unknown
	// errors are not assumed safe to retry.
	return Classified{Kind: KindPermanent, Underlying: err}
}

// serverError classifies a 5xx response. The wait suggestion exists only
// when the server explicitly communicated one; a malformed header degrades to
// the floor, an absent header leaves the caller's backoff policy in charge.
func (c *Classifier) serverError(f RawFailure, floor time.Duration, err error) Classified {
	if strings.TrimSpace(f.RetryAfter) == "" {
		return Classified{Kind: KindTransient, Underlying: err}
	}
	return Classified{
		Kind:          KindTransient,
		SuggestedWait: parseRetryAfter(f.RetryAfter, floor),
		HasWait:       true,
		Underlying:    err,
	}
}

func (c *Classifier) quotaIndicated(fields map[string]string) bool {
	for _, v := range fields {
		lv := strings.ToLower(v)
		for _, phrase := range c.config.QuotaPhrases {
			if strings.Contains(lv, phrase) {
				return true
			}
		}
	}
	return false
}
