package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 2 * time.Second
	max := 5 * time.Minute

	assert.Equal(t, 2*time.Second, Backoff(base, 1, max))
	assert.Equal(t, 4*time.Second, Backoff(base, 2, max))
	assert.Equal(t, 8*time.Second, Backoff(base, 3, max))
	assert.Equal(t, 16*time.Second, Backoff(base, 4, max))
}

func TestBackoffIsCapped(t *testing.T) {
	base := 2 * time.Second
	max := 10 * time.Second

	assert.Equal(t, max, Backoff(base, 10, max))
	assert.Equal(t, max, Backoff(base, 60, max))
}

func TestBackoffHandlesDegenerateAttempts(t *testing.T) {
	base := 2 * time.Second
	max := time.Minute

	assert.Equal(t, base, Backoff(base, 0, max))
	assert.Equal(t, base, Backoff(base, -3, max))
}
