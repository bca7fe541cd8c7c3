package notifierworker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/solace-health/solace-platform/internal/events"
	"github.com/solace-health/solace-platform/pkg/logging"
)

// dispatcher sends the user-facing notifications for appointment events.
type dispatcher interface {
	NotifyRescheduled(ctx context.Context, evt events.AppointmentRescheduled) error
	NotifyRefunded(ctx context.Context, evt events.PaymentRefunded) error
}

// Worker drains the notification queue and fans events out as emails.
// A message is deleted only after its notifications went out, so a
// crashed send is redelivered (at-least-once).
type Worker struct {
	queue       events.Consumer
	notify      dispatcher
	logger      *logging.Logger
	batch       int
	waitSeconds int
	interval    time.Duration
}

func New(queue events.Consumer, notify dispatcher, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:       queue,
		notify:      notify,
		logger:      logger,
		batch:       10,
		waitSeconds: 20,
		interval:    time.Second,
	}
}

func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batch = n
	}
	return w
}

func (w *Worker) WithPollInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

// Run polls the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.DrainOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.DrainOnce(ctx)
		}
	}
}

// DrainOnce receives one batch and processes it.
func (w *Worker) DrainOnce(ctx context.Context) {
	msgs, err := w.queue.Receive(ctx, w.batch, w.waitSeconds)
	if err != nil {
		w.logger.Error("notification receive failed", "error", err)
		return
	}
	for _, msg := range msgs {
		if err := w.handle(ctx, msg.Body); err != nil {
			w.logger.Error("notification handling failed", "error", err, "message_id", msg.ID)
			continue
		}
		if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
			w.logger.Error("notification delete failed", "error", err, "message_id", msg.ID)
		}
	}
}

func (w *Worker) handle(ctx context.Context, body string) error {
	var envelope events.Envelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		// Malformed payloads can never succeed on retry; log and drop.
		w.logger.Error("notification envelope unreadable, dropping", "error", err)
		return nil
	}

	switch envelope.Type {
	case events.TypeAppointmentRescheduled:
		var evt events.AppointmentRescheduled
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			w.logger.Error("reschedule payload unreadable, dropping", "error", err, "event_id", envelope.ID)
			return nil
		}
		return w.notify.NotifyRescheduled(ctx, evt)
	case events.TypePaymentRefunded:
		var evt events.PaymentRefunded
		if err := json.Unmarshal(envelope.Payload, &evt); err != nil {
			w.logger.Error("refund payload unreadable, dropping", "error", err, "event_id", envelope.ID)
			return nil
		}
		return w.notify.NotifyRefunded(ctx, evt)
	default:
		w.logger.Warn("unknown event type, dropping", "type", envelope.Type, "event_id", envelope.ID)
		return nil
	}
}
