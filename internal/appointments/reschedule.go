package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/solace-health/solace-platform/internal/events"
	"github.com/solace-health/solace-platform/internal/identity"
	"github.com/solace-health/solace-platform/internal/locks"
	"github.com/solace-health/solace-platform/internal/observability/metrics"
	"github.com/solace-health/solace-platform/internal/therapists"
	"github.com/solace-health/solace-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("solace.internal.appointments")

// txBeginner is satisfied by pgxpool.Pool and pgxmock.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RescheduleResult is returned to the caller. The fee is surfaced for
// separate collection; the orchestrator never charges it inline.
type RescheduleResult struct {
	NewAppointmentID uuid.UUID
	FeeCents         int32
	FeeTier          string
}

// Orchestrator supersedes an appointment with a replacement in a single
// transaction: insert the new row, cancel the original, record the
// outbox event. Either all three commit or none do, so two concurrently
// scheduled appointments for the same lineage cannot exist.
type Orchestrator struct {
	db      txBeginner
	outbox  *events.OutboxStore
	locker  *locks.AppointmentLocker
	metrics *metrics.AppointmentMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewOrchestrator constructs the reschedule orchestrator.
func NewOrchestrator(db txBeginner, outbox *events.OutboxStore, locker *locks.AppointmentLocker, m *metrics.AppointmentMetrics, logger *logging.Logger) *Orchestrator {
	if db == nil {
		panic("appointments: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		db:      db,
		outbox:  outbox,
		locker:  locker,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source; used by tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	if now != nil {
		o.now = now
	}
	return o
}

// Reschedule moves an appointment to newDateTime on behalf of
// actorUserID. Preconditions are checked in order: existence,
// ownership, then that the original session has not already passed.
// Therapist-initiated reschedules never charge the client a fee.
func (o *Orchestrator) Reschedule(ctx context.Context, appointmentID uuid.UUID, newDateTime time.Time, reason string, actorUserID uuid.UUID) (*RescheduleResult, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("solace.appointment_id", appointmentID.String()),
		attribute.String("solace.actor_id", actorUserID.String()),
	)

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, appointmentID.String())
		if err != nil {
			return nil, err
		}
		defer release()
	}

	now := o.now().UTC()
	if !newDateTime.After(now) {
		return nil, ErrDateTimeNotFuture
	}

	tx, err := o.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin reschedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := lockAppointment(ctx, tx, appointmentID)
	if err != nil {
		return nil, err
	}

	therapistUserID, feePct, err := therapistPolicy(ctx, tx, appt.TherapistID)
	if err != nil {
		return nil, err
	}

	var actorRole identity.Role
	switch actorUserID {
	case appt.ClientID:
		actorRole = identity.RoleClient
	case therapistUserID:
		actorRole = identity.RoleTherapist
	default:
		return nil, ErrPermissionDenied
	}

	if appt.DateTime.Before(now) {
		return nil, ErrPastAppointment
	}
	if appt.Status != StatusScheduled {
		return nil, ErrAlreadyFinalized
	}

	hoursUntil := appt.DateTime.Sub(now).Hours()
	tier := FeeTier(hoursUntil)

	var feeCents int32
	if actorRole == identity.RoleClient {
		priceCents, err := bookedPrice(ctx, tx, appt)
		if err != nil {
			return nil, err
		}
		feeCents = ComputeFee(priceCents, hoursUntil, feePct)
	}

	notes := "Rescheduled"
	if reason != "" {
		notes = "Rescheduled: " + reason
	}

	newID := uuid.New()
	insertSQL := `
		INSERT INTO appointments (id, client_id, therapist_id, service_id, date_time, status, payment_status,
			payment_intent_id, subscription_id, rescheduled_from, notes, price_cents, currency)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, $7, $8, $9, $10, $11, $12)
	`
	if _, err := tx.Exec(ctx, insertSQL,
		newID,
		appt.ClientID,
		appt.TherapistID,
		appt.ServiceID,
		newDateTime.UTC(),
		appt.PaymentStatus,
		appt.PaymentIntentID,
		appt.SubscriptionID,
		appt.DateTime,
		notes,
		appt.PriceCents,
		appt.Currency,
	); err != nil {
		return nil, fmt.Errorf("appointments: insert replacement: %w", err)
	}

	cancelReason := "Rescheduled to " + newDateTime.UTC().Format(time.RFC3339)
	cancelSQL := `
		UPDATE appointments
		SET status = 'cancelled', cancellation_reason = $2
		WHERE id = $1 AND status = 'scheduled'
	`
	ct, err := tx.Exec(ctx, cancelSQL, appt.ID, cancelReason)
	if err != nil {
		return nil, fmt.Errorf("appointments: cancel original: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return nil, fmt.Errorf("appointments: cancel original: %w", ErrAlreadyFinalized)
	}

	if o.outbox != nil {
		if _, err := o.outbox.InsertTx(ctx, tx, events.TypeAppointmentRescheduled, events.AppointmentRescheduled{
			OriginalID:  appt.ID,
			NewID:       newID,
			ClientID:    appt.ClientID,
			TherapistID: appt.TherapistID,
			OldDateTime: appt.DateTime,
			NewDateTime: newDateTime.UTC(),
			FeeCents:    feeCents,
			ActorRole:   string(actorRole),
			Reason:      reason,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit reschedule: %w", err)
	}

	o.metrics.ObserveReschedule(string(actorRole), tier)
	o.metrics.ObserveFee(feeCents)
	o.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"new_appointment_id", newID,
		"actor_role", actorRole,
		"fee_cents", feeCents,
		"fee_tier", tier,
	)

	return &RescheduleResult{
		NewAppointmentID: newID,
		FeeCents:         feeCents,
		FeeTier:          tier,
	}, nil
}

// lockAppointment loads the row under FOR UPDATE so a concurrent refund
// or second reschedule serializes behind this transaction.
func lockAppointment(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	appt, err := scanAppointment(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: lock row: %w", err)
	}
	return appt, nil
}

// therapistPolicy resolves the owning user and fee percentage for the
// appointment's therapist profile.
func therapistPolicy(ctx context.Context, tx pgx.Tx, therapistID uuid.UUID) (uuid.UUID, int32, error) {
	var profile therapists.Profile
	query := `SELECT user_id, cancellation_fee_percentage FROM therapist_profiles WHERE id = $1`
	if err := tx.QueryRow(ctx, query, therapistID).Scan(&profile.UserID, &profile.CancellationFeePct); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, 0, therapists.ErrProfileNotFound
		}
		return uuid.Nil, 0, fmt.Errorf("appointments: therapist policy: %w", err)
	}
	return profile.UserID, profile.EffectiveFeePct(), nil
}

// bookedPrice prefers the price snapshot captured at booking, falling
// back to the referenced service's current price for legacy rows.
func bookedPrice(ctx context.Context, tx pgx.Tx, appt *Appointment) (int32, error) {
	if appt.PriceCents != nil {
		return *appt.PriceCents, nil
	}
	if appt.ServiceID == nil {
		return 0, nil
	}
	var price int32
	query := `SELECT price_cents FROM therapist_services WHERE id = $1`
	if err := tx.QueryRow(ctx, query, *appt.ServiceID).Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, therapists.ErrServiceNotFound
		}
		return 0, fmt.Errorf("appointments: service price: %w", err)
	}
	return price, nil
}
