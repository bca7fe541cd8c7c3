package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solace-health/solace-platform/internal/identity"
	"github.com/solace-health/solace-platform/internal/therapists"
	"github.com/solace-health/solace-platform/pkg/logging"
)

// directory resolves users to roles and therapist profiles.
type directory interface {
	RoleForUser(ctx context.Context, userID uuid.UUID) (identity.Role, error)
	ProfileForUser(ctx context.Context, userID uuid.UUID) (*therapists.Profile, error)
	GetService(ctx context.Context, serviceID uuid.UUID) (*therapists.Service, error)
}

// Rescheduler moves an appointment to a new time slot. Satisfied by the
// Orchestrator in-process and by the HTTP client remotely.
type Rescheduler interface {
	Reschedule(ctx context.Context, appointmentID uuid.UUID, newDateTime time.Time, reason string, actorUserID uuid.UUID) (*RescheduleResult, error)
}

// Store is the read/write surface for a user's appointments. All
// mutation goes through the repository; nothing is cached in memory, so
// reads always reflect committed state.
type Store struct {
	repo        *Repository
	dir         directory
	rescheduler Rescheduler
	logger      *logging.Logger
}

// NewStore wires the appointment surface together.
func NewStore(repo *Repository, dir directory, rescheduler Rescheduler, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{repo: repo, dir: dir, rescheduler: rescheduler, logger: logger}
}

// FetchAppointments returns every appointment where the user sits on
// either side of the booking. Therapists see their client calendar in
// the same list as any sessions they booked themselves.
func (s *Store) FetchAppointments(ctx context.Context, userID uuid.UUID) ([]View, error) {
	role, err := s.dir.RoleForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("appointments: resolve role: %w", err)
	}

	therapistProfileID := uuid.Nil
	if role == identity.RoleTherapist {
		profile, err := s.dir.ProfileForUser(ctx, userID)
		switch {
		case err == nil:
			therapistProfileID = profile.ID
		case errors.Is(err, therapists.ErrProfileNotFound):
			// Role flag without a profile row; treat as client-only.
		default:
			return nil, fmt.Errorf("appointments: resolve profile: %w", err)
		}
	}

	return s.repo.ListViews(ctx, userID, therapistProfileID)
}

// GetAppointment returns the joined view of a single appointment for a
// participant.
func (s *Store) GetAppointment(ctx context.Context, appointmentID uuid.UUID, actorUserID uuid.UUID) (*View, error) {
	view, err := s.repo.GetView(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeActor(ctx, &view.Appointment, actorUserID); err != nil {
		return nil, err
	}
	return view, nil
}

// BookParams describes a booking request.
type BookParams struct {
	TherapistID uuid.UUID
	ClientID    uuid.UUID
	ServiceID   *uuid.UUID
	DateTime    time.Time

	// Free-credit bookings carry no payment association.
	FreeCredit bool
}

// CreateAppointment books a session. When a service is referenced its
// price and currency are snapshotted onto the appointment row so later
// price changes never alter what this booking owes.
func (s *Store) CreateAppointment(ctx context.Context, params BookParams) (*Appointment, error) {
	create := CreateParams{
		ClientID:    params.ClientID,
		TherapistID: params.TherapistID,
		ServiceID:   params.ServiceID,
		DateTime:    params.DateTime,
	}
	if params.FreeCredit {
		create.PaymentStatus = PaymentFree
	} else {
		create.PaymentStatus = PaymentUnpaid
	}

	if params.ServiceID != nil {
		svc, err := s.dir.GetService(ctx, *params.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("appointments: resolve service: %w", err)
		}
		create.PriceCents = &svc.PriceCents
		currency := svc.Currency
		create.Currency = &currency
	}

	appt, err := s.repo.Create(ctx, create)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"client_id", appt.ClientID,
		"therapist_id", appt.TherapistID,
		"free_credit", params.FreeCredit,
	)
	return appt, nil
}

// UpdateAppointmentStatus moves an appointment to a new status on
// behalf of a participant. Fee evaluation is the reschedule flow's
// concern; a plain status change never charges anything.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, status Status, reason *string, actorUserID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeActor(ctx, appt, actorUserID); err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, appointmentID, status, reason)
}

// RescheduleAppointment delegates to the reschedule flow. The returned
// fee is surfaced for collection by the caller, never charged here.
func (s *Store) RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, newDateTime time.Time, reason string, actorUserID uuid.UUID) (*RescheduleResult, error) {
	return s.rescheduler.Reschedule(ctx, appointmentID, newDateTime, reason, actorUserID)
}

func (s *Store) authorizeActor(ctx context.Context, appt *Appointment, actorUserID uuid.UUID) error {
	if appt.ClientID == actorUserID {
		return nil
	}
	profile, err := s.dir.ProfileForUser(ctx, actorUserID)
	if err == nil && profile.ID == appt.TherapistID {
		return nil
	}
	if err != nil && !errors.Is(err, therapists.ErrProfileNotFound) {
		return fmt.Errorf("appointments: resolve profile: %w", err)
	}
	return ErrPermissionDenied
}
