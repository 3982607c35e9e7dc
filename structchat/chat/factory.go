package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/structchat/structchat/chat/adapters"
	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/ZanzyTHEbar/structchat/structchat/config"
	"github.com/ZanzyTHEbar/structchat/structchat/db"
)

const attemptCeiling = 20

// Factory creates and wires engine components from configuration.
type Factory struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewFactory creates a new engine factory.
func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// Components holds the collaborators shared by every engine built from one
// configuration.
type Components struct {
	Transport ports.Transport
	Audit     ports.AuditSink
	Store     ports.TurnStore
	Limiter   ports.RateLimiter
	Metrics   ports.Metrics
	Policy    Policy
	Backoff   Backoff

	logger  zerolog.Logger
	closers []func() error
}

// NewEngine returns an engine with its own conversation over the shared
// components.
func (c *Components) NewEngine() *Engine {
	executor := NewExecutor(c.Transport, c.Audit, c.Limiter, c.Metrics, c.Backoff, c.logger)
	return NewEngine(executor, c.Audit, c.Store, c.Metrics, c.Policy, c.logger)
}

// Close releases database and cache connections.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build creates every component. A nil transport is replaced by the
// configured HTTP transport; a nil registerer disables metrics.
func (f *Factory) Build(ctx context.Context, transport ports.Transport, reg prometheus.Registerer) (*Components, error) {
	c := &Components{
		Transport: transport,
		Audit:     f.createAuditSink(),
		Limiter:   f.createRateLimiter(),
		Policy:    f.CreatePolicy(),
		Backoff:   f.createBackoff(),
		logger:    f.logger,
	}
	if c.Transport == nil {
		c.Transport = f.createTransport()
	}

	metrics, err := f.createMetrics(reg)
	if err != nil {
		return nil, err
	}
	c.Metrics = metrics

	store, closer, err := f.createStore(ctx)
	if err != nil {
		return nil, err
	}
	c.Store = store
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	return c, nil
}

// CreatePolicy creates a policy from config with clamped budgets.
func (f *Factory) CreatePolicy() Policy {
	policy := Policy{
		NetworkAttempts:    f.cfg.Engine.NetworkAttempts,
		CorrectionAttempts: f.cfg.Engine.CorrectionAttempts,
		DefaultLabel:       f.cfg.Engine.DefaultLabel,
	}

	if policy.NetworkAttempts < 1 {
		policy.NetworkAttempts = 1
		f.logger.Warn().Int("network_attempts", f.cfg.Engine.NetworkAttempts).Msg("NetworkAttempts clamped to minimum of 1")
	}
	if policy.NetworkAttempts > attemptCeiling {
		policy.NetworkAttempts = attemptCeiling
		f.logger.Warn().Int("network_attempts", f.cfg.Engine.NetworkAttempts).Msgf("NetworkAttempts clamped to maximum of %d", attemptCeiling)
	}

	if policy.CorrectionAttempts < 1 {
		policy.CorrectionAttempts = 1
		f.logger.Warn().Int("correction_attempts", f.cfg.Engine.CorrectionAttempts).Msg("CorrectionAttempts clamped to minimum of 1")
	}
	if policy.CorrectionAttempts > attemptCeiling {
		policy.CorrectionAttempts = attemptCeiling
		f.logger.Warn().Int("correction_attempts", f.cfg.Engine.CorrectionAttempts).Msgf("CorrectionAttempts clamped to maximum of %d", attemptCeiling)
	}

	return policy
}

func (f *Factory) createBackoff() Backoff {
	return Backoff{
		Base:          f.cfg.Engine.RetryBackoff,
		JitterPercent: f.cfg.Engine.RetryJitterPercent,
	}
}

func (f *Factory) createTransport() ports.Transport {
	t := f.cfg.Transport
	return adapters.NewGeminiTransport(t.BaseURL, t.Model, t.APIKey, t.Timeout, f.logger)
}

func (f *Factory) createAuditSink() ports.AuditSink {
	return adapters.NewZerologAuditSink(f.logger)
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	if !f.cfg.RateLimit.Enabled {
		return noOpRateLimiter{}
	}
	return adapters.NewKeyedLimiter(f.cfg.RateLimit.RequestsPerSecond, f.cfg.RateLimit.Burst)
}

func (f *Factory) createMetrics(reg prometheus.Registerer) (ports.Metrics, error) {
	if !f.cfg.Metrics.Enabled || reg == nil {
		return noOpMetrics{}, nil
	}
	m, err := adapters.NewPrometheusMetrics(f.cfg.Metrics.Namespace, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

// CreateTurnStore opens the configured audit store on its own, for readers
// that run no engine. The returned function releases it.
func (f *Factory) CreateTurnStore(ctx context.Context) (ports.TurnStore, func() error, error) {
	store, closer, err := f.createStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if closer == nil {
		closer = func() error { return nil }
	}
	return store, closer, nil
}

func (f *Factory) createStore(ctx context.Context) (ports.TurnStore, func() error, error) {
	audit := f.cfg.Audit

	switch audit.Store {
	case "none", "":
		return noOpStore{}, nil, nil

	case "redis":
		store, err := adapters.NewRedisTurnStore(audit.RedisURL, audit.RedisTTL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case db.KindLibSQL, db.KindSQLite, db.KindPostgres:
		conn, err := db.Open(ctx, audit.Store, audit.DSN, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		if err := db.Migrate(ctx, conn, audit.Store, f.logger); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return adapters.NewSQLTurnStore(conn, audit.Store), conn.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown audit store %q", audit.Store)
}

// noOpAudit discards audit lines.
type noOpAudit struct{}

func (noOpAudit) Log(ctx context.Context, session, line string)   {}
func (noOpAudit) Flush(ctx context.Context, session string) error { return nil }

// noOpStore implements TurnStore with no-op behavior.
type noOpStore struct{}

func (noOpStore) Store(ctx context.Context, rec ports.Record) error { return nil }
func (noOpStore) Load(ctx context.Context, label string, index int) ([]ports.Record, error) {
	return nil, nil
}

// noOpRateLimiter implements RateLimiter with no-op behavior.
type noOpRateLimiter struct{}

func (noOpRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// noOpMetrics implements Metrics with no-op behavior.
type noOpMetrics struct{}

func (noOpMetrics) ObserveAttempt(status int)     {}
func (noOpMetrics) ObserveCorrection()            {}
func (noOpMetrics) ObserveOutcome(outcome string) {}

// Ensure all no-op types implement their interfaces.
var (
	_ ports.AuditSink   = noOpAudit{}
	_ ports.TurnStore   = noOpStore{}
	_ ports.RateLimiter = noOpRateLimiter{}
	_ ports.Metrics     = noOpMetrics{}
)
