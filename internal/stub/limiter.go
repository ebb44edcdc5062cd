package stub

import (
	"sync"
	"time"
)

// SMSLimiter caps code sends per phone inside a sliding window.
type SMSLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	maxSends int
	sends    map[string][]time.Time
	now      func() time.Time
}

// NewSMSLimiter constructs a limiter allowing maxSends per phone per window.
func NewSMSLimiter(window time.Duration, maxSends int) *SMSLimiter {
	return &SMSLimiter{
		window:   window,
		maxSends: maxSends,
		sends:    make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records a send attempt and reports whether it is permitted, with an
// optional retry-after when it is not.
func (l *SMSLimiter) Allow(phone string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.sends[phone][:0]
	for _, t := range l.sends[phone] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.maxSends {
		l.sends[phone] = kept
		return false, kept[0].Add(l.window).Sub(now)
	}
	l.sends[phone] = append(kept, now)
	return true, 0
}
