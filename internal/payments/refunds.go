package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/solace-health/solace-platform/internal/appointments"
	"github.com/solace-health/solace-platform/internal/events"
	"github.com/solace-health/solace-platform/internal/identity"
	"github.com/solace-health/solace-platform/internal/locks"
	"github.com/solace-health/solace-platform/internal/observability/metrics"
	"github.com/solace-health/solace-platform/internal/therapists"
	"github.com/solace-health/solace-platform/pkg/logging"
)

var paymentsTracer = otel.Tracer("solace.internal.payments")

// appointmentStore is the slice of the appointment repository the
// coordinator needs.
type appointmentStore interface {
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*appointments.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, reason string) (*appointments.Appointment, error)
}

// directory resolves actor roles and therapist profiles.
type directory interface {
	RoleForUser(ctx context.Context, userID uuid.UUID) (identity.Role, error)
	ProfileForUser(ctx context.Context, userID uuid.UUID) (*therapists.Profile, error)
	GetService(ctx context.Context, serviceID uuid.UUID) (*therapists.Service, error)
}

// RefundOutcome is returned to the caller after a successful refund.
type RefundOutcome struct {
	RefundID       string `json:"refund_id"`
	AmountRefunded int32  `json:"amount_refunded"`
	Status         string `json:"status"`
}

// Coordinator runs the refund flow: authorize, validate, call the
// processor, then sync local state. The processor call is the point of
// no return; once it succeeds the refund happened, and local bookkeeping
// failures are logged rather than retried so money is never refunded
// twice.
type Coordinator struct {
	appts     appointmentStore
	dir       directory
	processor RefundProcessor
	refunds   *Repository
	outbox    *events.OutboxStore
	locker    *locks.AppointmentLocker
	metrics   *metrics.AppointmentMetrics
	logger    *logging.Logger
}

func NewCoordinator(appts appointmentStore, dir directory, processor RefundProcessor, refunds *Repository, outbox *events.OutboxStore, locker *locks.AppointmentLocker, m *metrics.AppointmentMetrics, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		appts:     appts,
		dir:       dir,
		processor: processor,
		refunds:   refunds,
		outbox:    outbox,
		locker:    locker,
		metrics:   m,
		logger:    logger,
	}
}

// Refund refunds the charge behind paymentIntentID. amountCents nil
// means a full refund of the booked price. Only the therapist who owns
// the appointment may refund it.
func (c *Coordinator) Refund(ctx context.Context, paymentIntentID, reason string, amountCents *int32, actorUserID uuid.UUID) (*RefundOutcome, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.refund")
	defer span.End()
	span.SetAttributes(attribute.String("stripe.payment_intent", paymentIntentID))

	role, err := c.dir.RoleForUser(ctx, actorUserID)
	if err != nil {
		return nil, fmt.Errorf("payments: resolve role: %w", err)
	}
	if role != identity.RoleTherapist {
		return nil, ErrPermissionDenied
	}

	appt, err := c.appts.GetByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	profile, err := c.dir.ProfileForUser(ctx, actorUserID)
	if err != nil {
		if errors.Is(err, therapists.ErrProfileNotFound) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("payments: resolve profile: %w", err)
	}
	if profile.ID != appt.TherapistID {
		return nil, ErrPermissionDenied
	}

	// Serialize against a concurrent reschedule of the same row, then
	// re-read so the already-refunded check sees committed state.
	if c.locker != nil {
		release, err := c.locker.Acquire(ctx, appt.ID.String())
		if err != nil {
			return nil, err
		}
		defer release()

		if appt, err = c.appts.GetByID(ctx, appt.ID); err != nil {
			return nil, err
		}
	}

	if appt.PaymentStatus == appointments.PaymentRefunded {
		return nil, ErrAlreadyRefunded
	}

	originalCents, err := c.originalPrice(ctx, appt)
	if err != nil {
		return nil, err
	}
	refundCents := originalCents
	kind := RefundKindFull
	if amountCents != nil {
		refundCents = *amountCents
		kind = RefundKindPartial
	}
	if refundCents <= 0 || refundCents > originalCents {
		return nil, ErrInvalidAmount
	}
	if c.refunds != nil {
		refunded, err := c.refunds.RefundedTotal(ctx, paymentIntentID)
		if err != nil {
			return nil, err
		}
		if refundCents > originalCents-refunded {
			return nil, ErrInvalidAmount
		}
	}

	processed, err := c.processor.Refund(ctx, ProcessorRefundParams{
		PaymentIntentID: paymentIntentID,
		AmountCents:     refundCents,
		Reason:          reason,
	})
	if err != nil {
		c.metrics.ObserveRefund(kind, "processor_error")
		return nil, fmt.Errorf("%w: %w", ErrRefundProcessor, err)
	}

	// Everything after this point is best-effort sync of local state;
	// the processor already moved the money.
	c.syncLocalState(ctx, appt, processed, paymentIntentID, reason, refundCents, actorUserID)

	c.metrics.ObserveRefund(kind, "ok")
	c.logger.Info("refund completed",
		"refund_id", processed.RefundID,
		"appointment_id", appt.ID,
		"payment_intent", paymentIntentID,
		"amount_cents", refundCents,
		"kind", kind,
	)

	return &RefundOutcome{
		RefundID:       processed.RefundID,
		AmountRefunded: refundCents,
		Status:         processed.Status,
	}, nil
}

func (c *Coordinator) syncLocalState(ctx context.Context, appt *appointments.Appointment, processed *ProcessorRefund, paymentIntentID, reason string, refundCents int32, actorUserID uuid.UUID) {
	if _, err := c.appts.MarkRefunded(ctx, appt.ID, reason); err != nil {
		c.logger.Error("failed to mark appointment refunded after processor refund",
			"appointment_id", appt.ID,
			"refund_id", processed.RefundID,
			"error", err,
		)
	}

	if c.refunds != nil {
		record := &PaymentRefund{
			ID:              uuid.New(),
			AppointmentID:   appt.ID,
			PaymentIntentID: paymentIntentID,
			RefundID:        processed.RefundID,
			AmountCents:     refundCents,
			Reason:          reason,
			Status:          processed.Status,
			RefundedBy:      actorUserID,
		}
		if err := c.refunds.InsertRefund(ctx, record); err != nil {
			c.logger.Error("failed to persist refund record",
				"appointment_id", appt.ID,
				"refund_id", processed.RefundID,
				"error", err,
			)
		}
	}

	if c.outbox != nil {
		if _, err := c.outbox.Insert(ctx, events.TypePaymentRefunded, events.PaymentRefunded{
			AppointmentID:   appt.ID,
			ClientID:        appt.ClientID,
			TherapistID:     appt.TherapistID,
			PaymentIntentID: paymentIntentID,
			RefundID:        processed.RefundID,
			AmountCents:     refundCents,
			Reason:          reason,
		}); err != nil {
			c.logger.Error("failed to enqueue refund event",
				"appointment_id", appt.ID,
				"refund_id", processed.RefundID,
				"error", err,
			)
		}
	}
}

// originalPrice resolves the refundable base amount: the price snapshot
// captured at booking, or the referenced service's current price for
// rows booked before snapshotting existed.
func (c *Coordinator) originalPrice(ctx context.Context, appt *appointments.Appointment) (int32, error) {
	if appt.PriceCents != nil {
		return *appt.PriceCents, nil
	}
	if appt.ServiceID == nil {
		return 0, nil
	}
	svc, err := c.dir.GetService(ctx, *appt.ServiceID)
	if err != nil {
		if errors.Is(err, therapists.ErrServiceNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("payments: resolve service price: %w", err)
	}
	return svc.PriceCents, nil
}

// History lists the refund records for an appointment the actor is a
// party to, newest first.
func (c *Coordinator) History(ctx context.Context, appointmentID uuid.UUID, actorUserID uuid.UUID) ([]PaymentRefund, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.history")
	defer span.End()

	appt, err := c.appts.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if appt.ClientID != actorUserID {
		profile, err := c.dir.ProfileForUser(ctx, actorUserID)
		if err != nil {
			if errors.Is(err, therapists.ErrProfileNotFound) {
				return nil, ErrPermissionDenied
			}
			return nil, fmt.Errorf("payments: resolve profile: %w", err)
		}
		if profile.ID != appt.TherapistID {
			return nil, ErrPermissionDenied
		}
	}

	if c.refunds == nil {
		return []PaymentRefund{}, nil
	}
	return c.refunds.ListByAppointment(ctx, appointmentID)
}
