// Package limiter gates a stream of scalar progress values so that
// consumers are not flooded, while boundary values always get through.
package limiter

import (
	"math"
	"time"
)

type Config struct {
	Min            float64
	Max            float64
	ValueThreshold float64
	TimeThreshold  time.Duration
}

// DefaultConfig gates ratios in [0,1]: a 1% change or 16ms forces emission.
func DefaultConfig() Config {
	return Config{
		Min:            0,
		Max:            1,
		ValueThreshold: 0.01,
		TimeThreshold:  16 * time.Millisecond,
	}
}

// ProgressLimiter is not safe for concurrent use. It is meant to be owned by
// a single goroutine.
type ProgressLimiter struct {
	conf                Config
	currentTimeProvider func() time.Time

	emitted       bool
	lastValue     float64
	lastEmittedAt time.Time
}

func New(conf Config, currentTimeProvider func() time.Time) *ProgressLimiter {
	if currentTimeProvider == nil {
		currentTimeProvider = time.Now
	}

	return &ProgressLimiter{
		conf:                conf,
		currentTimeProvider: currentTimeProvider,
	}
}

// Reset forgets the last emission, so the next Step always emits.
func (l *ProgressLimiter) Reset() {
	l.emitted = false
	l.lastValue = 0
	l.lastEmittedAt = time.Time{}
}

// Step reports whether value should be emitted. Accepted values become the
// new baseline.
func (l *ProgressLimiter) Step(value float64) bool {
	now := l.currentTimeProvider()

	if !l.shouldEmit(value, now) {
		return false
	}

	l.emitted = true
	l.lastValue = value
	l.lastEmittedAt = now
	return true
}

func (l *ProgressLimiter) shouldEmit(value float64, now time.Time) bool {
	switch {
	case !l.emitted:
		return true
	case value == l.conf.Min || value == l.conf.Max:
		return true
	case math.Abs(value-l.lastValue) >= l.conf.ValueThreshold:
		return true
	case now.Sub(l.lastEmittedAt) >= l.conf.TimeThreshold:
		return true
	}
	return false
}
