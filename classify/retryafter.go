package classify

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// parseRetryAfter converts a raw Retry-After header value into a wait
// duration. Both forms HTTP permits are accepted: an integer number of
// seconds, or an HTTP-date. Anything unparseable falls back to floor.
func parseRetryAfter(raw string, floor time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return floor
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return floor
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		// Date in the past: the server considers the wait already elapsed,
		// but honor the floor rather than retrying immediately.
		return floor
	}

	return floor
}
