package therapists

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solace-health/solace-platform/internal/identity"
)

// querier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository loads user roles, therapist profiles and services.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("therapists: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mocked connection for tests.
func NewRepositoryWithDB(db querier) *Repository {
	return &Repository{db: db}
}

// RoleForUser resolves whether a user is a client or a therapist.
func (r *Repository) RoleForUser(ctx context.Context, userID uuid.UUID) (identity.Role, error) {
	var role string
	query := `SELECT role FROM users WHERE id = $1`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("therapists: role lookup: %w", err)
	}
	return identity.Role(role), nil
}

// ProfileForUser fetches the therapist profile owned by a user.
func (r *Repository) ProfileForUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, user_id, display_name, cancellation_fee_percentage, cancellation_policy, created_at
		FROM therapist_profiles
		WHERE user_id = $1
	`
	return r.scanProfile(r.db.QueryRow(ctx, query, userID))
}

// GetProfile fetches a therapist profile by its id.
func (r *Repository) GetProfile(ctx context.Context, profileID uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, user_id, display_name, cancellation_fee_percentage, cancellation_policy, created_at
		FROM therapist_profiles
		WHERE id = $1
	`
	return r.scanProfile(r.db.QueryRow(ctx, query, profileID))
}

func (r *Repository) scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.DisplayName,
		&p.CancellationFeePct,
		&p.CancellationPolicy,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("therapists: profile select: %w", err)
	}
	return &p, nil
}

// Contact is a notification recipient.
type Contact struct {
	Email string
	Name  string
}

// ContactForUser returns a user's email and display name.
func (r *Repository) ContactForUser(ctx context.Context, userID uuid.UUID) (*Contact, error) {
	var c Contact
	query := `SELECT email, display_name FROM users WHERE id = $1`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&c.Email, &c.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("therapists: contact lookup: %w", err)
	}
	return &c, nil
}

// ContactForProfile returns the email and display name of the user
// behind a therapist profile.
func (r *Repository) ContactForProfile(ctx context.Context, profileID uuid.UUID) (*Contact, error) {
	var c Contact
	query := `
		SELECT u.email, tp.display_name
		FROM therapist_profiles tp
		JOIN users u ON u.id = tp.user_id
		WHERE tp.id = $1
	`
	if err := r.db.QueryRow(ctx, query, profileID).Scan(&c.Email, &c.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("therapists: profile contact lookup: %w", err)
	}
	return &c, nil
}

// GetService fetches a bookable service by id.
func (r *Repository) GetService(ctx context.Context, serviceID uuid.UUID) (*Service, error) {
	query := `
		SELECT id, therapist_id, name, price_cents, currency, type, COALESCE(billing_interval, ''), active
		FROM therapist_services
		WHERE id = $1
	`
	var s Service
	if err := r.db.QueryRow(ctx, query, serviceID).Scan(
		&s.ID,
		&s.TherapistID,
		&s.Name,
		&s.PriceCents,
		&s.Currency,
		&s.Type,
		&s.BillingInterval,
		&s.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("therapists: service select: %w", err)
	}
	return &s, nil
}
