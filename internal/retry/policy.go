package retry

import (
	"time"

	"bugrelay/internal/constants"
)

// Policy is the pure backoff schedule for buffered submissions. It holds no
// state; eligibility is derived from a record's retry count and last attempt
// time.
type Policy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxRetries   int
}

// DefaultPolicy returns the standard delivery schedule: 5s initial delay,
// doubling per failure, capped at 5 minutes, with at most 5 retries.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: constants.DefaultInitialRetryDelaySec * time.Second,
		Multiplier:   constants.DefaultRetryMultiplier,
		MaxDelay:     constants.DefaultMaxRetryDelaySec * time.Second,
		MaxRetries:   constants.DefaultMaxRetries,
	}
}

// NextEligibleAt returns the earliest instant a record that has failed
// retryCount times, most recently at lastAttemptAt, may be attempted again.
func (p Policy) NextEligibleAt(retryCount int, lastAttemptAt time.Time) time.Time {
	delay := float64(p.InitialDelay)
	for i := 0; i < retryCount; i++ {
		delay *= p.Multiplier
	}
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return lastAttemptAt.Add(time.Duration(delay))
}

// IsExhausted reports whether a record has used up its retry budget.
func (p Policy) IsExhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}

// Eligible reports whether a record may be attempted at now. A record that
// has never failed is always eligible.
func (p Policy) Eligible(retryCount int, lastAttemptAt *time.Time, now time.Time) bool {
	if retryCount == 0 || lastAttemptAt == nil {
		return true
	}
	return !now.Before(p.NextEligibleAt(retryCount, *lastAttemptAt))
}
