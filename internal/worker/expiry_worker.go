package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/citytransit/transit-service/internal/service"
)

// ExpiryWorker periodically sweeps elapsed tickets to EXPIRED so listings
// and analytics stay consistent without waiting for a read to notice.
type ExpiryWorker struct {
	tickets  *service.TicketService
	interval time.Duration
	logger   *zap.Logger
}

// NewExpiryWorker builds the worker.
func NewExpiryWorker(tickets *service.TicketService, interval time.Duration, logger *zap.Logger) *ExpiryWorker {
	return &ExpiryWorker{tickets: tickets, interval: interval, logger: logger}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (w *ExpiryWorker) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			w.logger.Info("expiry worker stopped")
			return
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	if _, err := w.tickets.ProcessExpired(ctx); err != nil {
		w.logger.Error("expiry sweep failed", zap.Error(err))
	}
}
