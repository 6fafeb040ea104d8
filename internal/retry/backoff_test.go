package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_Defaults(t *testing.T) {
	b := NewExponentialBackoff(3, WithJitter(0))

	assert.Equal(t, 3, b.MaxAttempts())
	assert.Equal(t, 100*time.Millisecond, b.NextDelay(0))
	assert.Equal(t, 200*time.Millisecond, b.NextDelay(1))
	assert.Equal(t, 400*time.Millisecond, b.NextDelay(2))
}

func TestExponentialBackoff_CapsAtMaxDelay(t *testing.T) {
	b := NewExponentialBackoff(10,
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(time.Second),
		WithJitter(0),
	)

	assert.Equal(t, 800*time.Millisecond, b.NextDelay(3))
	assert.Equal(t, time.Second, b.NextDelay(4))
	assert.Equal(t, time.Second, b.NextDelay(20))
}

func TestExponentialBackoff_NegativeAttemptTreatedAsFirst(t *testing.T) {
	b := NewExponentialBackoff(1, WithJitter(0))
	assert.Equal(t, b.NextDelay(0), b.NextDelay(-5))
}

func TestExponentialBackoff_Jitter(t *testing.T) {
	tests := []struct {
		name   string
		random float64
		want   time.Duration
	}{
		{"low end", 0.0, 900 * time.Millisecond},
		{"midpoint", 0.5, time.Second},
		{"high end", 0.99, 1098 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewExponentialBackoff(1,
				WithInitialDelay(time.Second),
				WithJitter(0.1),
				WithRandom(func() float64 { return tt.random }),
			)
			assert.InDelta(t, float64(tt.want), float64(b.NextDelay(0)), float64(time.Millisecond))
		})
	}
}

func TestExponentialBackoff_IgnoresInvalidOptions(t *testing.T) {
	b := NewExponentialBackoff(2,
		WithInitialDelay(-time.Second),
		WithMaxDelay(0),
		WithMultiplier(0.5),
		WithJitter(-1),
		WithRandom(nil),
	)

	assert.Equal(t, 100*time.Millisecond, b.NextDelay(0))
	assert.Equal(t, 200*time.Millisecond, b.NextDelay(1))
}
