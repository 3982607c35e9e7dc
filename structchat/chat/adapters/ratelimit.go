package adapters

import (
	"context"
	"fmt"
	"sync"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"golang.org/x/time/rate"
)

// KeyedLimiter keeps one token bucket per key and blocks callers until a
// token is available or their context ends.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewKeyedLimiter allows rps requests per second per key with the given burst.
func NewKeyedLimiter(rps float64, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Acquire waits for a token for key. The release function is a no-op; tokens
// refill with time.
func (l *KeyedLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	if err := l.get(key).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	}
	return func() {}, nil
}

func (l *KeyedLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// ErrRateLimitExceeded is returned when no token could be obtained.
var ErrRateLimitExceeded = &RateLimitError{Message: "rate limit exceeded"}

type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// Ensure KeyedLimiter implements the RateLimiter interface.
var _ ports.RateLimiter = (*KeyedLimiter)(nil)
