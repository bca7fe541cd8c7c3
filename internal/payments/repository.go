package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists payment refund audit records.
type Repository struct {
	db querier
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mocked connection for tests.
func NewRepositoryWithDB(db querier) *Repository {
	return &Repository{db: db}
}

// InsertRefund records a processed refund. One row per successful
// processor refund.
func (r *Repository) InsertRefund(ctx context.Context, refund *PaymentRefund) error {
	query := `
		INSERT INTO payment_refunds (id, appointment_id, payment_intent_id, refund_id, amount_cents, reason, status, refunded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.Exec(ctx, query,
		refund.ID,
		refund.AppointmentID,
		refund.PaymentIntentID,
		refund.RefundID,
		refund.AmountCents,
		refund.Reason,
		refund.Status,
		refund.RefundedBy,
	); err != nil {
		return fmt.Errorf("payments: insert refund: %w", err)
	}
	return nil
}

// RefundedTotal returns the cents already refunded against a payment
// intent across all partial refunds.
func (r *Repository) RefundedTotal(ctx context.Context, paymentIntentID string) (int32, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM payment_refunds WHERE payment_intent_id = $1`
	var total int32
	if err := r.db.QueryRow(ctx, query, paymentIntentID).Scan(&total); err != nil {
		return 0, fmt.Errorf("payments: refunded total: %w", err)
	}
	return total, nil
}

// ListByAppointment returns the refund records for an appointment,
// newest first.
func (r *Repository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]PaymentRefund, error) {
	query := `
		SELECT id, appointment_id, payment_intent_id, refund_id, amount_cents, reason, status, refunded_by, created_at
		FROM payment_refunds
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("payments: list refunds: %w", err)
	}
	defer rows.Close()

	refunds := []PaymentRefund{}
	for rows.Next() {
		var pr PaymentRefund
		if err := rows.Scan(
			&pr.ID,
			&pr.AppointmentID,
			&pr.PaymentIntentID,
			&pr.RefundID,
			&pr.AmountCents,
			&pr.Reason,
			&pr.Status,
			&pr.RefundedBy,
			&pr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("payments: scan refund: %w", err)
		}
		refunds = append(refunds, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payments: refund rows: %w", err)
	}
	return refunds, nil
}
