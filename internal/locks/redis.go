package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/solace-health/solace-platform/pkg/logging"
)

// ErrLocked is returned when another request holds the lock.
var ErrLocked = errors.New("resource is locked by another operation")

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// AppointmentLocker serializes mutations per appointment id so a
// concurrent reschedule and refund cannot interleave. The row-level
// lock inside the database transaction remains the authoritative
// guard; this keeps contending requests from burning a transaction
// just to block on it.
type AppointmentLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewAppointmentLocker creates a locker with the given lease TTL.
func NewAppointmentLocker(client *redis.Client, ttl time.Duration, logger *logging.Logger) *AppointmentLocker {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AppointmentLocker{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the per-appointment lock and returns a release func.
// Returns ErrLocked if the appointment is already being mutated.
// A nil client degrades to a no-op so single-instance deployments can
// run without Redis.
func (l *AppointmentLocker) Acquire(ctx context.Context, appointmentID string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}

	key := "lock:appointment:" + appointmentID
	holder := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, holder, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("locks: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func() {
		// Release must not inherit request cancellation.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, holder).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release appointment lock", "key", key, "error", err)
		}
	}
	return release, nil
}
