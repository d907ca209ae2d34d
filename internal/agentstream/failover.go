package agentstream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FailoverConfig configures a FailoverAdapter.
type FailoverConfig struct {
	MaxRetries              int
	RetryBackoff            time.Duration
	MaxRetryBackoff         time.Duration
	FailoverOnRateLimit     bool
	FailoverOnServerError   bool
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// DefaultFailoverConfig returns conservative retry/circuit-breaker defaults.
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		MaxRetries:              2,
		RetryBackoff:            100 * time.Millisecond,
		MaxRetryBackoff:         5 * time.Second,
		FailoverOnRateLimit:     true,
		FailoverOnServerError:   true,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

type providerState struct {
	name          string
	failures      int
	lastFailure   time.Time
	circuitOpen   bool
	circuitOpenAt time.Time
}

func (s *providerState) available(cfg FailoverConfig) bool {
	if !s.circuitOpen {
		return true
	}
	return time.Since(s.circuitOpenAt) > cfg.CircuitBreakerTimeout
}

// FailoverMetrics snapshots cumulative failover statistics.
type FailoverMetrics struct {
	TotalRequests    int64
	TotalFailovers   int64
	TotalRetries     int64
	ProviderFailures map[string]int64
	CircuitBreaks    int64
}

// FailoverAdapter wraps an ordered list of Adapters, trying each in turn
// with per-provider retry and circuit breaking.
type FailoverAdapter struct {
	adapters []Adapter
	cfg      FailoverConfig

	mu      sync.RWMutex
	states  map[string]*providerState
	metrics FailoverMetrics
}

// NewFailoverAdapter constructs a FailoverAdapter over primary plus any
// fallbacks, tried in the given order.
func NewFailoverAdapter(cfg FailoverConfig, primary Adapter, fallbacks ...Adapter) *FailoverAdapter {
	return &FailoverAdapter{
		adapters: append([]Adapter{primary}, fallbacks...),
		cfg:      cfg,
		states:   make(map[string]*providerState),
		metrics:  FailoverMetrics{ProviderFailures: make(map[string]int64)},
	}
}

// Name implements Adapter.
func (f *FailoverAdapter) Name() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.adapters) == 0 {
		return "failover"
	}
	return "failover:" + f.adapters[0].Name()
}

// Stream implements Adapter: it tries each configured adapter in order,
// retrying a given adapter with backoff before failing over to the next,
// and skips adapters whose circuit breaker is currently open.
func (f *FailoverAdapter) Stream(ctx context.Context, req Request, opts Options) (<-chan StreamEvent, error) {
	f.mu.Lock()
	f.metrics.TotalRequests++
	f.mu.Unlock()

	f.mu.RLock()
	adapters := make([]Adapter, len(f.adapters))
	copy(adapters, f.adapters)
	f.mu.RUnlock()

	var lastErr error
	for i, adapter := range adapters {
		state := f.stateFor(adapter.Name())
		if !state.available(f.cfg) {
			continue
		}

		ch, err := f.tryAdapter(ctx, adapter, req, opts)
		if err == nil {
			f.recordSuccess(adapter.Name())
			return ch, nil
		}

		lastErr = err
		f.recordFailure(adapter.Name(), err)

		if !f.shouldFailover(err) {
			return nil, err
		}
		if i < len(adapters)-1 {
			f.mu.Lock()
			f.metrics.TotalFailovers++
			f.mu.Unlock()
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("agentstream: no available providers")
	}
	return nil, lastErr
}

func (f *FailoverAdapter) tryAdapter(ctx context.Context, adapter Adapter, req Request, opts Options) (<-chan StreamEvent, error) {
	var lastErr error
	backoff := f.cfg.RetryBackoff

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		ch, err := adapter.Stream(ctx, req, opts)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		if !isRetryableFailoverError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= f.cfg.MaxRetries {
			break
		}

		f.mu.Lock()
		f.metrics.TotalRetries++
		f.mu.Unlock()

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > f.cfg.MaxRetryBackoff {
				backoff = f.cfg.MaxRetryBackoff
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (f *FailoverAdapter) shouldFailover(err error) bool {
	reason := classifyFailoverError(err)
	switch reason {
	case "billing", "auth", "model_unavailable":
		return true
	}
	if f.cfg.FailoverOnRateLimit && reason == "rate_limit" {
		return true
	}
	if f.cfg.FailoverOnServerError && reason == "server_error" {
		return true
	}
	return false
}

func isRetryableFailoverError(err error) bool {
	switch classifyFailoverError(err) {
	case "rate_limit", "timeout", "server_error":
		return true
	default:
		return false
	}
}

func classifyFailoverError(err error) string {
	if err == nil {
		return "unknown"
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"), strings.Contains(s, "context deadline"):
		return "timeout"
	case strings.Contains(s, "rate limit"), strings.Contains(s, "rate_limit"), strings.Contains(s, "too many requests"), strings.Contains(s, "429"):
		return "rate_limit"
	case strings.Contains(s, "unauthorized"), strings.Contains(s, "invalid api key"), strings.Contains(s, "authentication"), strings.Contains(s, "401"), strings.Contains(s, "403"):
		return "auth"
	case strings.Contains(s, "billing"), strings.Contains(s, "payment"), strings.Contains(s, "quota"), strings.Contains(s, "402"):
		return "billing"
	case strings.Contains(s, "model not found"), strings.Contains(s, "does not exist"), strings.Contains(s, "unavailable"):
		return "model_unavailable"
	case strings.Contains(s, "internal server"), strings.Contains(s, "server error"), strings.Contains(s, "500"), strings.Contains(s, "502"), strings.Contains(s, "503"), strings.Contains(s, "504"):
		return "server_error"
	case strings.Contains(s, "invalid"), strings.Contains(s, "bad request"), strings.Contains(s, "400"):
		return "invalid_request"
	default:
		return "unknown"
	}
}

func (f *FailoverAdapter) stateFor(name string) *providerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.states[name]; ok {
		return s
	}
	s := &providerState{name: name}
	f.states[name] = s
	return s
}

func (f *FailoverAdapter) recordSuccess(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.states[name]; s != nil {
		s.failures = 0
		s.circuitOpen = false
	}
}

func (f *FailoverAdapter) recordFailure(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.states[name]
	if s == nil {
		s = &providerState{name: name}
		f.states[name] = s
	}
	s.failures++
	s.lastFailure = time.Now()
	if s.failures >= f.cfg.CircuitBreakerThreshold && !s.circuitOpen {
		s.circuitOpen = true
		s.circuitOpenAt = time.Now()
		f.metrics.CircuitBreaks++
	}
	f.metrics.ProviderFailures[name]++
}

// Metrics returns a snapshot of cumulative failover statistics.
func (f *FailoverAdapter) Metrics() FailoverMetrics {
	f.mu.RLock()
	defer f.mu.RUnlock()
	failures := make(map[string]int64, len(f.metrics.ProviderFailures))
	for k, v := range f.metrics.ProviderFailures {
		failures[k] = v
	}
	return FailoverMetrics{
		TotalRequests:    f.metrics.TotalRequests,
		TotalFailovers:   f.metrics.TotalFailovers,
		TotalRetries:     f.metrics.TotalRetries,
		ProviderFailures: failures,
		CircuitBreaks:    f.metrics.CircuitBreaks,
	}
}

// ResetCircuitBreaker clears the failure count and reopens a provider.
func (f *FailoverAdapter) ResetCircuitBreaker(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.states[name]; ok {
		s.failures = 0
		s.circuitOpen = false
	}
}
