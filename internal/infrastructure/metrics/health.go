package metrics

import (
	"sync"
	"time"

	"github.com/nicklaros/stockengine/pkg/logger"
)

// HealthStatus is the outcome of one registered check.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is the result of running one named check.
type HealthCheck struct {
	Name         string        `json:"name"`
	Status       HealthStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
}

// HealthChecker runs named checks for /health/ready and aggregates them
// into one overall status.
type HealthChecker struct {
	checks map[string]func() HealthCheck
	logger logger.Logger
	mutex  sync.RWMutex
}

// NewHealthChecker builds an empty HealthChecker.
func NewHealthChecker(logger logger.Logger) *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]func() HealthCheck),
		logger: logger,
	}
}

// RegisterCheck adds a named check. checkFunc should not block for more
// than a few hundred milliseconds.
func (hc *HealthChecker) RegisterCheck(name string, checkFunc func() HealthCheck) {
	hc.mutex.Lock()
	defer hc.mutex.Unlock()
	hc.checks[name] = checkFunc
}

// RunChecks executes every registered check and returns its result.
func (hc *HealthChecker) RunChecks() map[string]HealthCheck {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()

	results := make(map[string]HealthCheck, len(hc.checks))
	for name, checkFunc := range hc.checks {
		start := time.Now()
		result := checkFunc()
		result.ResponseTime = time.Since(start)
		results[name] = result

		if result.Status != HealthStatusHealthy {
			hc.logger.WithFields(map[string]interface{}{
				"check":   name,
				"message": result.Message,
			}).Warn("health check failed")
		}
	}
	return results
}

// IsHealthy reports whether every registered check passed.
func (hc *HealthChecker) IsHealthy() bool {
	for _, check := range hc.RunChecks() {
		if check.Status != HealthStatusHealthy {
			return false
		}
	}
	return true
}
