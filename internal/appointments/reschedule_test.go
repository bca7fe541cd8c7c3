package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func apptColumns() []string {
	return []string{
		"id", "client_id", "therapist_id", "service_id", "date_time", "status", "payment_status",
		"payment_intent_id", "subscription_id", "cancellation_reason", "rescheduled_from", "notes",
		"price_cents", "currency", "created_at",
	}
}

type rescheduleFixture struct {
	mock        pgxmock.PgxPoolIface
	orch        *Orchestrator
	now         time.Time
	apptID      uuid.UUID
	clientID    uuid.UUID
	therapistID uuid.UUID
	therapistU  uuid.UUID
	origDT      time.Time
}

func newRescheduleFixture(t *testing.T) *rescheduleFixture {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f := &rescheduleFixture{
		mock:        mock,
		now:         now,
		apptID:      uuid.New(),
		clientID:    uuid.New(),
		therapistID: uuid.New(),
		therapistU:  uuid.New(),
		origDT:      now.Add(10 * time.Hour),
	}
	f.orch = NewOrchestrator(mock, nil, nil, nil, nil).WithClock(func() time.Time { return now })
	return f
}

func (f *rescheduleFixture) paidAppointmentRow() *pgxmock.Rows {
	price := int32(10000)
	currency := "usd"
	intent := "pi_123"
	return pgxmock.NewRows(apptColumns()).AddRow(
		f.apptID, f.clientID, f.therapistID, (*uuid.UUID)(nil), f.origDT,
		StatusScheduled, PaymentPaid, &intent, (*string)(nil), (*string)(nil),
		(*time.Time)(nil), "", &price, &currency, f.now.Add(-24*time.Hour),
	)
}

func (f *rescheduleFixture) expectLockedSelect(rows *pgxmock.Rows) {
	f.mock.ExpectQuery("SELECT id, client_id, therapist_id").
		WithArgs(f.apptID).
		WillReturnRows(rows)
}

func (f *rescheduleFixture) expectPolicy(pct *int32) {
	f.mock.ExpectQuery("SELECT user_id, cancellation_fee_percentage").
		WithArgs(f.therapistID).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "cancellation_fee_percentage"}).
			AddRow(f.therapistU, pct))
}

func TestRescheduleByClientWithinWindowChargesFee(t *testing.T) {
	f := newRescheduleFixture(t)
	newDT := f.now.Add(72 * time.Hour)

	f.mock.ExpectBegin()
	f.expectLockedSelect(f.paidAppointmentRow())
	f.expectPolicy(nil) // unconfigured -> default 50%
	f.mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), f.clientID, f.therapistID, pgxmock.AnyArg(), newDT,
			PaymentPaid, pgxmock.AnyArg(), pgxmock.AnyArg(), f.origDT,
			"Rescheduled: conflict came up", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectExec("UPDATE appointments").
		WithArgs(f.apptID, "Rescheduled to "+newDT.Format(time.RFC3339)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectCommit()

	result, err := f.orch.Reschedule(context.Background(), f.apptID, newDT, "conflict came up", f.clientID)
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	// $100 session, default 50%, 10 hours out -> $50 fee.
	if result.FeeCents != 5000 {
		t.Fatalf("expected 5000 fee cents, got %d", result.FeeCents)
	}
	if result.FeeTier != FeeTierLate {
		t.Fatalf("expected late tier, got %s", result.FeeTier)
	}
	if result.NewAppointmentID == uuid.Nil {
		t.Fatal("expected a new appointment id")
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRescheduleByTherapistIsAlwaysFree(t *testing.T) {
	f := newRescheduleFixture(t)
	newDT := f.now.Add(48 * time.Hour)

	f.mock.ExpectBegin()
	f.expectLockedSelect(f.paidAppointmentRow())
	f.expectPolicy(nil)
	f.mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectCommit()

	result, err := f.orch.Reschedule(context.Background(), f.apptID, newDT, "", f.therapistU)
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	if result.FeeCents != 0 {
		t.Fatalf("therapist reschedule must be free, got %d", result.FeeCents)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRescheduleUsesConfiguredFeePercentage(t *testing.T) {
	f := newRescheduleFixture(t)
	newDT := f.now.Add(48 * time.Hour)
	pct := int32(30)

	f.mock.ExpectBegin()
	f.expectLockedSelect(f.paidAppointmentRow())
	f.expectPolicy(&pct)
	f.mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectCommit()

	result, err := f.orch.Reschedule(context.Background(), f.apptID, newDT, "", f.clientID)
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	if result.FeeCents != 3000 {
		t.Fatalf("expected 3000 fee cents at 30%%, got %d", result.FeeCents)
	}
}

func TestRescheduleNotFound(t *testing.T) {
	f := newRescheduleFixture(t)

	f.mock.ExpectBegin()
	f.expectLockedSelect(pgxmock.NewRows(apptColumns()))
	f.mock.ExpectRollback()

	_, err := f.orch.Reschedule(context.Background(), f.apptID, f.now.Add(48*time.Hour), "", f.clientID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRescheduleRejectsStranger(t *testing.T) {
	f := newRescheduleFixture(t)

	f.mock.ExpectBegin()
	f.expectLockedSelect(f.paidAppointmentRow())
	f.expectPolicy(nil)
	f.mock.ExpectRollback()

	_, err := f.orch.Reschedule(context.Background(), f.apptID, f.now.Add(48*time.Hour), "", uuid.New())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRescheduleRejectsPastAppointment(t *testing.T) {
	f := newRescheduleFixture(t)
	f.origDT = f.now.Add(-1 * time.Hour)

	f.mock.ExpectBegin()
	f.expectLockedSelect(f.paidAppointmentRow())
	f.expectPolicy(nil)
	f.mock.ExpectRollback()

	_, err := f.orch.Reschedule(context.Background(), f.apptID, f.now.Add(48*time.Hour), "", f.clientID)
	if !errors.Is(err, ErrPastAppointment) {
		t.Fatalf("expected ErrPastAppointment, got %v", err)
	}
}

func TestRescheduleRejectsNonFutureTarget(t *testing.T) {
	f := newRescheduleFixture(t)

	// Fails before any database work.
	_, err := f.orch.Reschedule(context.Background(), f.apptID, f.now.Add(-time.Minute), "", f.clientID)
	if !errors.Is(err, ErrDateTimeNotFuture) {
		t.Fatalf("expected ErrDateTimeNotFuture, got %v", err)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected db access: %v", err)
	}
}

func TestRescheduleRollsBackWhenCancelFails(t *testing.T) {
	f := newRescheduleFixture(t)
	newDT := f.now.Add(48 * time.Hour)

	f.mock.ExpectBegin()
	f.expectLockedSelect(f.paidAppointmentRow())
	f.expectPolicy(nil)
	f.mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// A concurrent writer finalized the original between our lock
	// release scenarios; zero rows affected must abort everything.
	f.mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	f.mock.ExpectRollback()

	_, err := f.orch.Reschedule(context.Background(), f.apptID, newDT, "", f.clientID)
	if !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized, got %v", err)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
