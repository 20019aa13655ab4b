package workers

import (
	"context"
	"log/slog"
	"time"
)

// Pinger is the slice of the broker client the health worker needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerHealthWorker periodically pings the pub/sub broker and logs
// health transitions. It only observes; reconnection is handled by the
// broker client.
type BrokerHealthWorker struct {
	log      *slog.Logger
	broker   Pinger
	interval time.Duration
	healthy  bool
}

func NewBrokerHealthWorker(log *slog.Logger, broker Pinger, interval time.Duration) *BrokerHealthWorker {
	return &BrokerHealthWorker{log: log, broker: broker, interval: interval, healthy: true}
}

func (w *BrokerHealthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping broker health checks")
			return nil
		case <-ticker.C:
			err := w.broker.Ping(ctx)
			switch {
			case err != nil && w.healthy:
				w.healthy = false
				w.log.Error("Broker unreachable, realtime delivery degraded", "error", err)
			case err == nil && !w.healthy:
				w.healthy = true
				w.log.Info("Broker reachable again")
			}
		}
	}
}
