package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
)

// StatusExhausted is the code of the synthetic response returned once every
// network attempt has failed.
const StatusExhausted = 429

// HTTPErrorPrefix starts every transport failure message.
const HTTPErrorPrefix = "Http error"

// Backoff configures the delay between network attempts. The zero value
// retries back-to-back.
type Backoff struct {
	Base          time.Duration
	JitterPercent int
}

// Executor wraps one blocking Transport exchange in a bounded retry loop.
type Executor struct {
	transport ports.Transport
	audit     ports.AuditSink
	limiter   ports.RateLimiter
	metrics   ports.Metrics
	backoff   Backoff
	logger    zerolog.Logger
}

// NewExecutor creates an executor. Nil limiter and metrics are replaced with
// no-op implementations.
func NewExecutor(transport ports.Transport, audit ports.AuditSink, limiter ports.RateLimiter, metrics ports.Metrics, backoff Backoff, logger zerolog.Logger) *Executor {
	if audit == nil {
		audit = noOpAudit{}
	}
	if limiter == nil {
		limiter = noOpRateLimiter{}
	}
	if metrics == nil {
		metrics = noOpMetrics{}
	}
	return &Executor{
		transport: transport,
		audit:     audit,
		limiter:   limiter,
		metrics:   metrics,
		backoff:   backoff,
		logger:    logger,
	}
}

var errNotOK = errors.New("unexpected status")

// AttemptRequest sends turns up to maxAttempts times and returns the first
// 200 response. When every attempt fails it returns a synthetic 429 response
// and writes one audit line for session. turns are never modified.
func (e *Executor) AttemptRequest(ctx context.Context, session string, turns []ports.Turn, maxAttempts int) ports.HTTPResponse {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		resp    ports.HTTPResponse
		attempt int
		lastErr error
	)

	err := retry.Do(ctx, e.newBackoff(maxAttempts), func(ctx context.Context) error {
		attempt++

		release, err := e.limiter.Acquire(ctx, "transport")
		if err != nil {
			lastErr = fmt.Errorf("rate limit: %w", err)
			e.metrics.ObserveAttempt(0)
			return retry.RetryableError(lastErr)
		}
		r, err := e.transport.Send(ctx, turns)
		release()

		if err != nil {
			lastErr = err
			e.metrics.ObserveAttempt(0)
			e.logger.Debug().Err(err).Str("session", session).Int("attempt", attempt).Msg("transport attempt failed")
			return retry.RetryableError(err)
		}

		e.metrics.ObserveAttempt(r.Code)
		if r.Code != ports.StatusOK {
			lastErr = fmt.Errorf("%w %d", errNotOK, r.Code)
			e.logger.Debug().Int("status", r.Code).Str("session", session).Int("attempt", attempt).Msg("transport attempt failed")
			return retry.RetryableError(lastErr)
		}

		resp = r
		return nil
	})
	if err == nil {
		return resp
	}

	msg := fmt.Sprintf("%s: max attempts (%d) exceeded", HTTPErrorPrefix, maxAttempts)
	if lastErr == nil {
		// retry.Do stops on a done context before calling the transport.
		e.audit.Log(ctx, session, fmt.Sprintf("%s: request abandoned after %d attempts: %v", HTTPErrorPrefix, attempt, err))
	} else {
		e.audit.Log(ctx, session, fmt.Sprintf("%s after %d attempts, last error: %v", msg, attempt, lastErr))
	}

	return ports.HTTPResponse{Code: StatusExhausted, Body: msg}
}

func (e *Executor) newBackoff(maxAttempts int) retry.Backoff {
	var b retry.Backoff
	if e.backoff.Base > 0 {
		b = retry.NewExponential(e.backoff.Base)
		if e.backoff.JitterPercent > 0 {
			b = retry.WithJitterPercent(uint64(e.backoff.JitterPercent), b)
		}
	} else {
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	return retry.WithMaxRetries(uint64(maxAttempts-1), b)
}
