package therapists

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/solace-health/solace-platform/internal/identity"
)

func TestRoleForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	userID := uuid.New()

	mock.ExpectQuery("SELECT role FROM users").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("therapist"))

	role, err := repo.RoleForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("RoleForUser returned error: %v", err)
	}
	if role != identity.RoleTherapist {
		t.Fatalf("expected therapist role, got %s", role)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleForUserMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	userID := uuid.New()

	mock.ExpectQuery("SELECT role FROM users").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"role"}))

	if _, err := repo.RoleForUser(context.Background(), userID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestProfileForUserAndFeeDefault(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	userID := uuid.New()
	profileID := uuid.New()
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "user_id", "display_name", "cancellation_fee_percentage", "cancellation_policy", "created_at"}).
		AddRow(profileID, userID, "Dr. Reyes", (*int32)(nil), "", now)
	mock.ExpectQuery("SELECT id, user_id, display_name").
		WithArgs(userID).
		WillReturnRows(rows)

	profile, err := repo.ProfileForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ProfileForUser returned error: %v", err)
	}
	if profile.ID != profileID {
		t.Fatalf("unexpected profile id: %s", profile.ID)
	}
	if got := profile.EffectiveFeePct(); got != DefaultCancellationFeePct {
		t.Fatalf("expected default fee pct, got %d", got)
	}
}

func TestEffectiveFeePctConfigured(t *testing.T) {
	pct := int32(30)
	p := &Profile{CancellationFeePct: &pct}
	if got := p.EffectiveFeePct(); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
}

func TestGetServiceMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	serviceID := uuid.New()

	mock.ExpectQuery("SELECT id, therapist_id, name").
		WithArgs(serviceID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := repo.GetService(context.Background(), serviceID); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}
