package pipeline

import (
	"net/http"
	"time"
)

// step is the transition taken after one send attempt.
type step int

const (
	stepSucceed step = iota
	stepRetry
	stepFail
)

func (s step) String() string {
	switch s {
	case stepSucceed:
		return "succeed"
	case stepRetry:
		return "retry"
	default:
		return "fail"
	}
}

// decide classifies attempt (1-based) out of maxAttempts given its transport
// error or HTTP status:
//
//	transport error, attempts left   -> retry
//	transport error, final attempt   -> fail
//	200                              -> succeed
//	>= 500, attempts left            -> retry
//	anything else                    -> fail
func decide(attempt, maxAttempts, status int, err error) step {
	final := attempt >= maxAttempts
	switch {
	case err != nil && !final:
		return stepRetry
	case err != nil:
		return stepFail
	case status == http.StatusOK:
		return stepSucceed
	case status >= http.StatusInternalServerError && !final:
		return stepRetry
	default:
		return stepFail
	}
}

// backoff is the wait after failed attempt n (1-based): base * 2^(n-1).
// n is clamped to [1, MaxAttemptsLimit] so the shift cannot overflow.
func backoff(base time.Duration, n int) time.Duration {
	n = max(1, min(n, MaxAttemptsLimit))
	return base << (n - 1)
}
