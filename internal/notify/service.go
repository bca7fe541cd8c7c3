package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solace-health/solace-platform/internal/events"
	"github.com/solace-health/solace-platform/internal/therapists"
	"github.com/solace-health/solace-platform/pkg/logging"
)

// ContactDirectory resolves notification recipients.
type ContactDirectory interface {
	ContactForUser(ctx context.Context, userID uuid.UUID) (*therapists.Contact, error)
	ContactForProfile(ctx context.Context, profileID uuid.UUID) (*therapists.Contact, error)
}

// Service renders appointment events into emails for both sides of the
// booking. A missing recipient is skipped, not fatal; one bounced email
// must not block the other.
type Service struct {
	email    EmailSender
	contacts ContactDirectory
	logger   *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, contacts ContactDirectory, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, contacts: contacts, logger: logger}
}

const sessionTimeFormat = "Monday, January 2 at 3:04 PM"

// NotifyRescheduled emails the client and therapist about a completed
// reschedule, including any cancellation fee owed.
func (s *Service) NotifyRescheduled(ctx context.Context, evt events.AppointmentRescheduled) error {
	oldTime := evt.OldDateTime.Format(sessionTimeFormat)
	newTime := evt.NewDateTime.Format(sessionTimeFormat)

	clientBody := fmt.Sprintf(
		"Your session on %s has been moved to %s.", oldTime, newTime)
	if evt.FeeCents > 0 {
		clientBody += fmt.Sprintf(
			"\n\nBecause the change was made within the cancellation window, a fee of $%.2f applies.",
			float64(evt.FeeCents)/100)
	}
	if evt.Reason != "" {
		clientBody += fmt.Sprintf("\n\nReason: %s", evt.Reason)
	}

	therapistBody := fmt.Sprintf(
		"A session on %s was rescheduled to %s by the %s.", oldTime, newTime, evt.ActorRole)

	var errs []error
	if err := s.sendToUser(ctx, evt.ClientID, "Your session has been rescheduled", clientBody); err != nil {
		errs = append(errs, err)
	}
	if err := s.sendToTherapist(ctx, evt.TherapistID, "A session on your calendar was rescheduled", therapistBody); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NotifyRefunded emails the client a refund confirmation and the
// therapist a record of the refund they issued.
func (s *Service) NotifyRefunded(ctx context.Context, evt events.PaymentRefunded) error {
	amount := fmt.Sprintf("$%.2f", float64(evt.AmountCents)/100)

	clientBody := fmt.Sprintf(
		"A refund of %s has been issued for your session. It should appear on your statement within 5-10 business days.", amount)
	if evt.Reason != "" {
		clientBody += fmt.Sprintf("\n\nReason: %s", evt.Reason)
	}

	therapistBody := fmt.Sprintf(
		"Your refund of %s (refund %s) was processed on %s.",
		amount, evt.RefundID, time.Now().Format("January 2, 2006"))

	var errs []error
	if err := s.sendToUser(ctx, evt.ClientID, "Your refund has been processed", clientBody); err != nil {
		errs = append(errs, err)
	}
	if err := s.sendToTherapist(ctx, evt.TherapistID, "Refund processed", therapistBody); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) sendToUser(ctx context.Context, userID uuid.UUID, subject, body string) error {
	contact, err := s.contacts.ContactForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, therapists.ErrUserNotFound) {
			s.logger.Warn("notify: recipient user missing, skipping", "user_id", userID)
			return nil
		}
		return fmt.Errorf("notify: resolve recipient: %w", err)
	}
	return s.send(ctx, contact, subject, body)
}

func (s *Service) sendToTherapist(ctx context.Context, profileID uuid.UUID, subject, body string) error {
	contact, err := s.contacts.ContactForProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, therapists.ErrProfileNotFound) {
			s.logger.Warn("notify: therapist profile missing, skipping", "profile_id", profileID)
			return nil
		}
		return fmt.Errorf("notify: resolve therapist: %w", err)
	}
	return s.send(ctx, contact, subject, body)
}

func (s *Service) send(ctx context.Context, contact *therapists.Contact, subject, body string) error {
	if contact.Email == "" {
		return nil
	}
	return s.email.Send(ctx, EmailMessage{
		To:      contact.Email,
		ToName:  contact.Name,
		Subject: subject,
		Body:    body,
	})
}
