package payment

import (
	"context"
	"time"

	"github.com/perontips/backend/internal/logger"
	"github.com/perontips/backend/internal/repository"
)

const (
	defaultReconcileInterval = 30 * time.Second
	timeoutResultDesc        = "Payment request timed out waiting for confirmation"
)

// Reconciler fails pending payments whose settlement callback never arrived,
// so the registry is not left with requests pending forever
type Reconciler struct {
	interval time.Duration
	timeout  time.Duration

	payments repository.PaymentRepo
	logger   logger.Logger
}

func NewReconciler(timeout time.Duration, payments repository.PaymentRepo, l logger.Logger) *Reconciler {
	return &Reconciler{
		interval: defaultReconcileInterval,
		timeout:  timeout,
		payments: payments,
		logger:   l,
	}
}

// Run periodically expires stale pending payments until the context is
// cancelled. The returned channel is closed when the loop has stopped
func (r *Reconciler) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	r.logger.Debug("Starting payment reconciler", "interval", r.interval, "timeout", r.timeout)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Debug("Reconciler stopped by context")
				return

			case <-ticker.C:
				expired, err := r.payments.FailStale(ctx, time.Now().Add(-r.timeout), timeoutResultDesc)
				if err != nil {
					r.logger.Error("Failed to expire stale payments", "error", err)
					continue
				}

				if expired > 0 {
					r.logger.Info("Expired stale pending payments", "count", expired)
				}
			}
		}
	}()

	return idleStopped
}
