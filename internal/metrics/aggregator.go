package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/idcheck/internal/domain"
)

// StatusCounter counts stored verifications per status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[domain.VerificationStatus]int, error)
}

var trackedStatuses = []domain.VerificationStatus{
	domain.StatusPending,
	domain.StatusRunning,
	domain.StatusApproved,
	domain.StatusRejected,
	domain.StatusFlagged,
}

// Aggregator periodically refreshes the per-status verification gauge, which
// shows the size of the manual review queue.
type Aggregator struct {
	counter  StatusCounter
	metrics  *Metrics
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewAggregator creates a new metrics aggregator worker
func NewAggregator(counter StatusCounter, metrics *Metrics, logger *slog.Logger, interval time.Duration) *Aggregator {
	if interval == 0 {
		interval = 1 * time.Minute
	}

	return &Aggregator{
		counter:  counter,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the aggregation loop until ctx is cancelled or Stop is called
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("metrics aggregator started", "interval", a.interval)
	a.Aggregate(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("metrics aggregator stopped")
			return
		case <-a.done:
			a.logger.Info("metrics aggregator stopped")
			return
		case <-ticker.C:
			a.Aggregate(ctx)
		}
	}
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
}

// Aggregate refreshes the gauge once
func (a *Aggregator) Aggregate(ctx context.Context) {
	counts, err := a.counter.CountByStatus(ctx)
	if err != nil {
		a.logger.Error("failed to count verifications", "error", err)
		return
	}

	for _, status := range trackedStatuses {
		a.metrics.SetStatusCount(string(status), counts[status])
	}
	a.logger.Debug("verification counts refreshed", "flagged", counts[domain.StatusFlagged])
}
