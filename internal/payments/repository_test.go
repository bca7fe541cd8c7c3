package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestInsertRefund(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	repo := NewRepositoryWithDB(mock)

	refund := &PaymentRefund{
		ID:              uuid.New(),
		AppointmentID:   uuid.New(),
		PaymentIntentID: "pi_123",
		RefundID:        "re_123",
		AmountCents:     10000,
		Reason:          "duplicate charge",
		Status:          "succeeded",
		RefundedBy:      uuid.New(),
	}

	mock.ExpectExec("INSERT INTO payment_refunds").
		WithArgs(refund.ID, refund.AppointmentID, "pi_123", "re_123", int32(10000), "duplicate charge", "succeeded", refund.RefundedBy).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.InsertRefund(context.Background(), refund); err != nil {
		t.Fatalf("InsertRefund returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefundedTotal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	repo := NewRepositoryWithDB(mock)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("pi_123").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int32(7500)))

	total, err := repo.RefundedTotal(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("RefundedTotal returned error: %v", err)
	}
	if total != 7500 {
		t.Fatalf("expected 7500, got %d", total)
	}
}

func TestListByAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	repo := NewRepositoryWithDB(mock)

	apptID := uuid.New()
	mock.ExpectQuery("FROM payment_refunds").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "appointment_id", "payment_intent_id", "refund_id", "amount_cents", "reason", "status", "refunded_by", "created_at",
		}).AddRow(
			uuid.New(), apptID, "pi_123", "re_123", int32(5000), "partial refund", "succeeded", uuid.New(), time.Now(),
		))

	refunds, err := repo.ListByAppointment(context.Background(), apptID)
	if err != nil {
		t.Fatalf("ListByAppointment returned error: %v", err)
	}
	if len(refunds) != 1 {
		t.Fatalf("expected 1 refund, got %d", len(refunds))
	}
	if refunds[0].RefundID != "re_123" {
		t.Fatalf("unexpected refund id %s", refunds[0].RefundID)
	}
	if refunds[0].Status != "succeeded" {
		t.Fatalf("unexpected refund status %s", refunds[0].Status)
	}
}
