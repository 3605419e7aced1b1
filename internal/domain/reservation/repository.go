package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for reservation aggregates.
//
// CreateIfSlotFree is the engine's one atomic check-then-write: the overlap
// test against PENDING/CONFIRMED holds and the insert must happen under a
// per-space serializing lock, or two concurrent requests could both pass the
// check and both insert.
type Repository interface {
	// FindByID retrieves a reservation by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// FindByDriver retrieves a driver's reservations with pagination,
	// newest first.
	FindByDriver(ctx context.Context, driverID uuid.UUID, page, limit int) ([]*Reservation, int64, error)

	// FindByHost retrieves reservations incoming to a host's spaces with
	// pagination, newest first.
	FindByHost(ctx context.Context, hostID uuid.UUID, page, limit int) ([]*Reservation, int64, error)

	// FindPendingBySpace retrieves a space's PENDING reservations.
	FindPendingBySpace(ctx context.Context, spaceID uuid.UUID) ([]*Reservation, error)

	// FindConfirmedEndedBefore retrieves CONFIRMED reservations whose end
	// has passed, for the completion sweeper.
	FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error)

	// CountOverlapping counts PENDING/CONFIRMED reservations on the space
	// conflicting with [start, end) under half-open semantics, optionally
	// excluding one reservation (uuid.Nil to exclude none).
	CountOverlapping(ctx context.Context, spaceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int64, error)

	// CreateIfSlotFree persists a new reservation, atomically re-running the
	// overlap check under a lock scoped to the space's calendar. Returns a
	// SlotConflict domain error when the interval is already held.
	CreateIfSlotFree(ctx context.Context, r *Reservation) error

	// Update persists changes to an existing reservation with optimistic
	// locking; a lost version race returns a Conflict domain error.
	Update(ctx context.Context, r *Reservation) error
}
