package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/solace-health/solace-platform/internal/appointments"
	"github.com/solace-health/solace-platform/internal/identity"
	"github.com/solace-health/solace-platform/internal/therapists"
)

const testSecret = "router-test-secret"

func signToken(t *testing.T, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type staticDirectory struct{}

func (staticDirectory) RoleForUser(ctx context.Context, userID uuid.UUID) (identity.Role, error) {
	return identity.RoleClient, nil
}

func (staticDirectory) ProfileForUser(ctx context.Context, userID uuid.UUID) (*therapists.Profile, error) {
	return nil, therapists.ErrProfileNotFound
}

func (staticDirectory) GetService(ctx context.Context, serviceID uuid.UUID) (*therapists.Service, error) {
	return nil, therapists.ErrServiceNotFound
}

func newTestRouter(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	store := appointments.NewStore(appointments.NewRepositoryWithDB(mock), staticDirectory{}, nil, nil)
	return New(&Config{
		AppointmentsHandler: appointments.NewHandler(store, nil),
		AuthJWTSecret:       testSecret,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	}), mock
}

func TestHealthIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsIsPublic(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAppointmentRoutesRequireAuth(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/appointments"},
		{http.MethodPost, "/appointments"},
		{http.MethodPost, "/reschedule-appointment"},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}
}

func TestAuthenticatedListReachesHandler(t *testing.T) {
	r, mock := newTestRouter(t)
	userID := uuid.New()

	mock.ExpectQuery("FROM appointments a").
		WithArgs(userID, uuid.Nil).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "client_id", "therapist_id", "service_id", "date_time", "status", "payment_status",
			"payment_intent_id", "subscription_id", "cancellation_reason", "rescheduled_from", "notes",
			"price_cents", "currency", "created_at",
			"therapist_name", "client_name", "service_name", "service_price_cents", "service_currency", "service_type",
		}))

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID.String(), "client"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
