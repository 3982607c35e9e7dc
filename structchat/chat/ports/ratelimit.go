package chatports

import "context"

// RateLimiter coordinates throughput towards a model backend.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
