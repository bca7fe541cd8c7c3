package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/solace-health/solace-platform/pkg/logging"
)

// Relay polls the outbox and publishes pending events to the queue.
// Delivery is at-least-once: an entry is only marked delivered after a
// successful publish, so a crash between the two can replay the event.
type Relay struct {
	store     *OutboxStore
	queue     Queue
	logger    *logging.Logger
	batchSize int32
	interval  time.Duration
}

func NewRelay(store *OutboxStore, queue Queue, logger *logging.Logger) *Relay {
	if logger == nil {
		logger = logging.Default()
	}
	return &Relay{
		store:     store,
		queue:     queue,
		logger:    logger,
		batchSize: 25,
		interval:  5 * time.Second,
	}
}

func (r *Relay) WithBatchSize(size int32) *Relay {
	if size > 0 {
		r.batchSize = size
	}
	return r
}

func (r *Relay) WithInterval(interval time.Duration) *Relay {
	if interval > 0 {
		r.interval = interval
	}
	return r
}

// Start blocks until ctx is cancelled, draining the outbox each tick.
func (r *Relay) Start(ctx context.Context) {
	if r.store == nil || r.queue == nil {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce publishes one batch of pending entries.
func (r *Relay) DrainOnce(ctx context.Context) {
	entries, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("outbox fetch failed", "error", err)
		return
	}
	for _, entry := range entries {
		body, err := json.Marshal(Envelope{
			ID:      entry.ID,
			Type:    entry.Type,
			Payload: entry.Payload,
		})
		if err != nil {
			r.logger.Error("envelope marshal failed", "error", err, "event_id", entry.ID)
			continue
		}
		if err := r.queue.Send(ctx, string(body)); err != nil {
			r.logger.Error("queue publish failed", "error", err, "event_id", entry.ID)
			continue
		}
		if _, err := r.store.MarkDelivered(ctx, entry.ID); err != nil {
			r.logger.Error("mark delivered failed", "error", err, "event_id", entry.ID)
		}
	}
}
