// Package audit runs periodic background integrity checks over the custody
// chain. A tampered block store (or a bug corrupting in-memory state) is
// surfaced minutes after it happens rather than on the next explicit
// verify call.
package audit

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds audit loop configuration.
type Config struct {
	CheckInterval  time.Duration
	AlarmThreshold int
}

// Verifier re-checks chain integrity. CustodyService implements it.
type Verifier interface {
	Verify(ctx context.Context) error
}

// MetricsRecordFunc is an optional callback for recording audit results.
type MetricsRecordFunc func(success bool)

// Auditor runs the periodic verification loop.
type Auditor struct {
	verifier  Verifier
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	mu        sync.Mutex
	failCount int
	lastErr   error
	lastRun   time.Time
}

// New creates an Auditor.
func New(verifier Verifier, cfg Config, logger *zap.Logger) *Auditor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.AlarmThreshold == 0 {
		cfg.AlarmThreshold = 1
	}
	return &Auditor{
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (a *Auditor) SetMetricsRecord(fn MetricsRecordFunc) {
	a.onMetrics = fn
}

// Start runs the audit loop until quit is signalled.
func (a *Auditor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.CheckInterval-time.Second)
			a.CheckOnce(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// CheckOnce runs a single verification pass and records the outcome.
func (a *Auditor) CheckOnce(ctx context.Context) {
	err := a.verifier.Verify(ctx)

	if a.onMetrics != nil {
		a.onMetrics(err == nil)
	}

	a.mu.Lock()
	prevCount := a.failCount
	if err == nil {
		a.failCount = 0
	} else {
		a.failCount++
	}
	count := a.failCount
	a.lastErr = err
	a.lastRun = time.Now().UTC()
	a.mu.Unlock()

	switch {
	case err == nil && prevCount >= a.cfg.AlarmThreshold:
		a.logger.Info("audit: chain integrity recovered")
	case err == nil:
		a.logger.Debug("audit: chain verified")
	case count == a.cfg.AlarmThreshold:
		a.logger.Error("audit: chain integrity ALARM", zap.Error(err), zap.Int("fail_count", count))
	default:
		a.logger.Error("audit: chain still failing verification", zap.Error(err), zap.Int("fail_count", count))
	}
}

// Status reports the most recent audit outcome.
func (a *Auditor) Status() (lastRun time.Time, lastErr error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastRun, a.lastErr
}
