package scheduler

import (
	"math"
	"time"
)

const maxBackoffDays = 60

// BackoffDays grows sub-linearly with the attempt count and caps at 60
// days. The exponent is deliberate: early retries stay frequent while
// chronically failing rows settle into a slow monthly rhythm.
func BackoffDays(attemptCount int) float64 {
	return math.Min(maxBackoffDays, math.Pow(float64(attemptCount+1), 1.8))
}

// EligibleAt returns the moment a row becomes due for re-evaluation.
func EligibleAt(createdAt time.Time, attemptCount int) time.Time {
	days := BackoffDays(attemptCount)
	return createdAt.Add(time.Duration(days * 24 * float64(time.Hour)))
}
