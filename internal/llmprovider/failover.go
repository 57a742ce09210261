package llmprovider

import (
	"context"
	"fmt"
	"sync"
	"time"

	retry "github.com/agentcore/core/internal/retrypolicy"
)

// FailoverConfig configures the failover orchestrator.
type FailoverConfig struct {
	RetryPolicy             retry.Config
	FailoverOnRateLimit     bool
	FailoverOnServerError   bool
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// DefaultFailoverConfig returns sensible defaults for failover.
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		RetryPolicy:             retry.Exponential(3, 100*time.Millisecond, 5*time.Second),
		FailoverOnRateLimit:     true,
		FailoverOnServerError:   true,
		CircuitBreakerThreshold: 3,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

// providerState tracks the health of a provider for circuit-breaking.
type providerState struct {
	failures      int
	circuitOpen   bool
	circuitOpenAt time.Time
}

func (s *providerState) available(cfg FailoverConfig) bool {
	if !s.circuitOpen {
		return true
	}
	return time.Since(s.circuitOpenAt) > cfg.CircuitBreakerTimeout
}

// FailoverMetrics tracks failover statistics.
type FailoverMetrics struct {
	mu               sync.Mutex
	TotalRequests    int64
	TotalFailovers   int64
	TotalRetries     int64
	ProviderFailures map[string]int64
	CircuitBreaks    int64
}

// Orchestrator tries a primary Provider, retrying transient failures, and
// falls over to the next registered provider when a failure warrants it.
type Orchestrator struct {
	mu        sync.RWMutex
	providers []Provider
	config    FailoverConfig
	states    map[string]*providerState
	metrics   *FailoverMetrics
}

// NewOrchestrator creates an orchestrator around primary.
func NewOrchestrator(primary Provider, config FailoverConfig) *Orchestrator {
	return &Orchestrator{
		providers: []Provider{primary},
		config:    config,
		states:    make(map[string]*providerState),
		metrics:   &FailoverMetrics{ProviderFailures: make(map[string]int64)},
	}
}

// AddProvider registers a fallback provider, tried in registration order
// after the primary.
func (o *Orchestrator) AddProvider(p Provider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.providers = append(o.providers, p)
}

// Name reports the primary provider's name; Orchestrator itself implements Provider.
func (o *Orchestrator) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.providers[0].Name()
}

func (o *Orchestrator) Models() []Model {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.providers[0].Models()
}

func (o *Orchestrator) SupportsTools() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.providers[0].SupportsTools()
}

// Complete tries each healthy provider in order, retrying transient
// failures against the same provider before failing over to the next.
func (o *Orchestrator) Complete(ctx context.Context, req CompletionRequest) (<-chan CompletionChunk, error) {
	o.metrics.mu.Lock()
	o.metrics.TotalRequests++
	o.metrics.mu.Unlock()

	o.mu.RLock()
	providers := make([]Provider, len(o.providers))
	copy(providers, o.providers)
	o.mu.RUnlock()

	var lastErr error
	for i, provider := range providers {
		state := o.stateFor(provider.Name())
		if !state.available(o.config) {
			continue
		}

		ch, err := o.tryProvider(ctx, provider, req)
		if err == nil {
			o.recordSuccess(provider.Name())
			return ch, nil
		}

		lastErr = err
		o.recordFailure(provider.Name(), err)

		if !o.shouldFailover(err) {
			return nil, err
		}
		if i < len(providers)-1 {
			o.metrics.mu.Lock()
			o.metrics.TotalFailovers++
			o.metrics.mu.Unlock()
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("llmprovider: no available providers")
	}
	return nil, lastErr
}

func (o *Orchestrator) tryProvider(ctx context.Context, provider Provider, req CompletionRequest) (<-chan CompletionChunk, error) {
	var ch <-chan CompletionChunk
	result := retry.Do(ctx, o.config.RetryPolicy, func() error {
		var err error
		ch, err = provider.Complete(ctx, req)
		if err != nil && !IsRetryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if result.Attempts > 1 {
		o.metrics.mu.Lock()
		o.metrics.TotalRetries += int64(result.Attempts - 1)
		o.metrics.mu.Unlock()
	}
	return ch, result.Err
}

func (o *Orchestrator) shouldFailover(err error) bool {
	if ShouldFailover(err) {
		return true
	}
	reason := ClassifyError(err)
	if o.config.FailoverOnRateLimit && reason == FailoverRateLimit {
		return true
	}
	if o.config.FailoverOnServerError && reason == FailoverServerError {
		return true
	}
	return false
}

func (o *Orchestrator) stateFor(name string) *providerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.states[name]
	if !ok {
		s = &providerState{}
		o.states[name] = s
	}
	return s
}

func (o *Orchestrator) recordSuccess(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.states[name]
	if s == nil {
		return
	}
	s.failures = 0
	s.circuitOpen = false
}

func (o *Orchestrator) recordFailure(name string, err error) {
	o.mu.Lock()
	s := o.states[name]
	if s == nil {
		s = &providerState{}
		o.states[name] = s
	}
	s.failures++
	opened := false
	if s.failures >= o.config.CircuitBreakerThreshold && !s.circuitOpen {
		s.circuitOpen = true
		s.circuitOpenAt = time.Now()
		opened = true
	}
	o.mu.Unlock()

	o.metrics.mu.Lock()
	o.metrics.ProviderFailures[name]++
	if opened {
		o.metrics.CircuitBreaks++
	}
	o.metrics.mu.Unlock()
}
