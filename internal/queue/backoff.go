package queue

import (
	"math"
	"time"
)

// Backoff returns the redelivery delay after the attempt-th failed attempt:
// base doubled per attempt, capped at max.
func Backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := math.Pow(2, float64(attempt-1))
	d := time.Duration(factor * float64(base))
	if d <= 0 || d > max {
		return max
	}
	return d
}
