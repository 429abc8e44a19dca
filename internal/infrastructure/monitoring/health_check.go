package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type CheckResult struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`
}

// HealthChecker runs registered dependency probes on demand.
type HealthChecker struct {
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewHealthChecker(logger *zap.SugaredLogger) *HealthChecker {
	return &HealthChecker{
		logger: logger,
		checks: make(map[string]CheckFunc),
	}
}

func (h *HealthChecker) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes all probes with a per-probe timeout and reports every result.
// Overall health is the conjunction.
func (h *HealthChecker) Run(ctx context.Context) (bool, []CheckResult) {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, fn := range h.checks {
		checks[name] = fn
	}
	h.mu.RUnlock()

	healthy := true
	results := make([]CheckResult, 0, len(checks))
	for name, fn := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		started := time.Now()
		err := fn(probeCtx)
		cancel()

		result := CheckResult{
			Name:    name,
			Healthy: err == nil,
			Latency: time.Since(started),
		}
		if err != nil {
			healthy = false
			result.Error = err.Error()
			h.logger.Warnw("health check failed", "check", name, "error", err)
		}
		results = append(results, result)
	}
	return healthy, results
}
