package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists appointments. Reschedule's two-write transaction
// lives in the Orchestrator; everything here is single-statement.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mocked connection for tests.
func NewRepositoryWithDB(db querier) *Repository {
	return &Repository{db: db}
}

const appointmentColumns = `id, client_id, therapist_id, service_id, date_time, status, payment_status,
	payment_intent_id, subscription_id, cancellation_reason, rescheduled_from, notes,
	price_cents, currency, created_at`

const viewSelect = `
	SELECT a.id, a.client_id, a.therapist_id, a.service_id, a.date_time, a.status, a.payment_status,
	       a.payment_intent_id, a.subscription_id, a.cancellation_reason, a.rescheduled_from, a.notes,
	       a.price_cents, a.currency, a.created_at,
	       tp.display_name, u.display_name,
	       s.name, s.price_cents, s.currency, s.type
	FROM appointments a
	JOIN therapist_profiles tp ON tp.id = a.therapist_id
	JOIN users u ON u.id = a.client_id
	LEFT JOIN therapist_services s ON s.id = a.service_id
`

// ListViews returns all appointments where the user is the client or
// the therapist, joined with display metadata, ordered by session time.
// therapistProfileID is uuid.Nil for users without a therapist profile.
func (r *Repository) ListViews(ctx context.Context, clientUserID, therapistProfileID uuid.UUID) ([]View, error) {
	query := viewSelect + `
	WHERE a.client_id = $1 OR a.therapist_id = $2
	ORDER BY a.date_time ASC
	`
	rows, err := r.db.Query(ctx, query, clientUserID, therapistProfileID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	views := []View{}
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list rows: %w", err)
	}
	return views, nil
}

// GetView fetches a single appointment joined with display metadata.
func (r *Repository) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	query := viewSelect + `
	WHERE a.id = $1
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("appointments: view select: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("appointments: view select: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanView(rows)
}

// GetByID fetches a bare appointment row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select by id: %w", err)
	}
	return appt, nil
}

// GetByPaymentIntent fetches the appointment linked to a processor
// payment intent.
func (r *Repository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE payment_intent_id = $1`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select by payment intent: %w", err)
	}
	return appt, nil
}

// CreateParams describes a new booking.
type CreateParams struct {
	ClientID      uuid.UUID
	TherapistID   uuid.UUID
	ServiceID     *uuid.UUID
	DateTime      time.Time
	PaymentStatus PaymentStatus

	// Snapshot of the service price at booking time.
	PriceCents *int32
	Currency   *string
}

// Create inserts a new appointment in scheduled status. Booking in the
// past is rejected before touching the database.
func (r *Repository) Create(ctx context.Context, params CreateParams) (*Appointment, error) {
	if !params.DateTime.After(time.Now()) {
		return nil, ErrDateTimeNotFuture
	}
	if params.PaymentStatus == "" {
		params.PaymentStatus = PaymentFree
	}

	appt := &Appointment{
		ID:            uuid.New(),
		ClientID:      params.ClientID,
		TherapistID:   params.TherapistID,
		ServiceID:     params.ServiceID,
		DateTime:      params.DateTime.UTC(),
		Status:        StatusScheduled,
		PaymentStatus: params.PaymentStatus,
		PriceCents:    params.PriceCents,
		Currency:      params.Currency,
	}

	query := `
		INSERT INTO appointments (id, client_id, therapist_id, service_id, date_time, status, payment_status, price_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		appt.ID,
		appt.ClientID,
		appt.TherapistID,
		appt.ServiceID,
		appt.DateTime,
		appt.Status,
		appt.PaymentStatus,
		appt.PriceCents,
		appt.Currency,
	).Scan(&appt.CreatedAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return appt, nil
}

// UpdateStatus moves a scheduled appointment to a new status. Terminal
// rows are never resurrected. A cancellation reason is recorded when
// supplied.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, cancellationReason *string) (*Appointment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if status == StatusCancelled && cancellationReason == nil {
		reason := "Cancelled"
		cancellationReason = &reason
	}

	query := `
		UPDATE appointments
		SET status = $2,
		    cancellation_reason = COALESCE($3, cancellation_reason)
		WHERE id = $1 AND status = 'scheduled'
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, status, cancellationReason))
	if err == nil {
		return appt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}

	// Distinguish a missing row from an already-finalized one.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyFinalized
}

// MarkRefunded flips an appointment to refunded/cancelled and appends
// the refund reason to its notes. Existing notes are preserved.
func (r *Repository) MarkRefunded(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	note := "Refunded: " + reason
	query := `
		UPDATE appointments
		SET payment_status = 'refunded',
		    status = 'cancelled',
		    cancellation_reason = COALESCE(cancellation_reason, $2),
		    notes = CASE WHEN notes = '' THEN $3 ELSE notes || E'\n' || $3 END
		WHERE id = $1
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, reason, note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: mark refunded: %w", err)
	}
	return appt, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.TherapistID,
		&a.ServiceID,
		&a.DateTime,
		&a.Status,
		&a.PaymentStatus,
		&a.PaymentIntentID,
		&a.SubscriptionID,
		&a.CancellationReason,
		&a.RescheduledFrom,
		&a.Notes,
		&a.PriceCents,
		&a.Currency,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanView(rows pgx.Rows) (*View, error) {
	var v View
	if err := rows.Scan(
		&v.ID,
		&v.ClientID,
		&v.TherapistID,
		&v.ServiceID,
		&v.DateTime,
		&v.Status,
		&v.PaymentStatus,
		&v.PaymentIntentID,
		&v.SubscriptionID,
		&v.CancellationReason,
		&v.RescheduledFrom,
		&v.Notes,
		&v.PriceCents,
		&v.Currency,
		&v.CreatedAt,
		&v.TherapistName,
		&v.ClientName,
		&v.ServiceName,
		&v.ServicePriceCents,
		&v.ServiceCurrency,
		&v.ServiceType,
	); err != nil {
		return nil, fmt.Errorf("appointments: scan view: %w", err)
	}
	return &v, nil
}
