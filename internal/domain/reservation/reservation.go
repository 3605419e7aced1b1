package reservation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parkshare/service-reservation/internal/domain"
)

// Reservation is the aggregate root for a driver's claim on a space. The
// price is derived once at creation and never recomputed; all later change
// flows through the status transition methods, which carry their own
// authorization and time-window guards. The owning host is snapshotted at
// creation so approval checks and incoming-to-host listings do not depend
// on catalog lookups.
type Reservation struct {
	id        uuid.UUID
	spaceID   uuid.UUID
	hostID    uuid.UUID
	productID uuid.UUID
	driverID  uuid.UUID
	vehicleID *uuid.UUID
	plate     string

	interval   Interval
	priceTotal int64
	status     Status

	confirmedAt *time.Time
	rejectedAt  *time.Time
	canceledAt  *time.Time
	completedAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewReservation creates a reservation in its initial status: CONFIRMED when
// the space auto-approves, PENDING otherwise. Interval shape and pricing are
// the caller's responsibility (see PricingPolicy); this constructor only
// enforces structural invariants.
func NewReservation(
	spaceID, hostID, productID, driverID uuid.UUID,
	vehicleID *uuid.UUID,
	plate string,
	ivl Interval,
	priceTotal int64,
	autoApprove bool,
) (*Reservation, error) {
	if spaceID == uuid.Nil {
		return nil, domain.NewValidationError("space ID is required")
	}
	if hostID == uuid.Nil {
		return nil, domain.NewValidationError("host ID is required")
	}
	if productID == uuid.Nil {
		return nil, domain.NewValidationError("product ID is required")
	}
	if driverID == uuid.Nil {
		return nil, domain.NewValidationError("driver ID is required")
	}
	if !ivl.IsValid() {
		return nil, domain.NewInvalidIntervalError("end time must be after start time")
	}
	if priceTotal < 0 {
		return nil, domain.NewValidationError("price total cannot be negative")
	}

	now := time.Now().UTC()
	r := &Reservation{
		id:         uuid.New(),
		spaceID:    spaceID,
		hostID:     hostID,
		productID:  productID,
		driverID:   driverID,
		vehicleID:  vehicleID,
		plate:      plate,
		interval:   ivl,
		priceTotal: priceTotal,
		status:     StatusPending,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}
	if autoApprove {
		r.status = StatusConfirmed
		r.confirmedAt = &now
	}
	return r, nil
}

// Reconstruct rebuilds a Reservation from persistence data (no validation).
func Reconstruct(
	id, spaceID, hostID, productID, driverID uuid.UUID,
	vehicleID *uuid.UUID,
	plate string,
	ivl Interval,
	priceTotal int64,
	status Status,
	confirmedAt, rejectedAt, canceledAt, completedAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:          id,
		spaceID:     spaceID,
		hostID:      hostID,
		productID:   productID,
		driverID:    driverID,
		vehicleID:   vehicleID,
		plate:       plate,
		interval:    ivl,
		priceTotal:  priceTotal,
		status:      status,
		confirmedAt: confirmedAt,
		rejectedAt:  rejectedAt,
		canceledAt:  canceledAt,
		completedAt: completedAt,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

func (r *Reservation) ID() uuid.UUID          { return r.id }
func (r *Reservation) SpaceID() uuid.UUID     { return r.spaceID }
func (r *Reservation) HostID() uuid.UUID      { return r.hostID }
func (r *Reservation) ProductID() uuid.UUID   { return r.productID }
func (r *Reservation) DriverID() uuid.UUID    { return r.driverID }
func (r *Reservation) VehicleID() *uuid.UUID  { return r.vehicleID }
func (r *Reservation) Plate() string          { return r.plate }
func (r *Reservation) Interval() Interval     { return r.interval }
func (r *Reservation) StartAt() time.Time     { return r.interval.Start }
func (r *Reservation) EndAt() time.Time       { return r.interval.End }
func (r *Reservation) PriceTotal() int64      { return r.priceTotal }
func (r *Reservation) Status() Status         { return r.status }
func (r *Reservation) ConfirmedAt() *time.Time { return r.confirmedAt }
func (r *Reservation) RejectedAt() *time.Time { return r.rejectedAt }
func (r *Reservation) CanceledAt() *time.Time { return r.canceledAt }
func (r *Reservation) CompletedAt() *time.Time { return r.completedAt }
func (r *Reservation) Version() int64         { return r.version }
func (r *Reservation) CreatedAt() time.Time   { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time   { return r.updatedAt }

// --- Behavior ---

// Approve transitions a PENDING reservation to CONFIRMED. Only the space's
// host may approve.
func (r *Reservation) Approve(actor uuid.UUID, now time.Time) error {
	if actor != r.hostID {
		return domain.NewUnauthorizedError("only the space host can approve a reservation")
	}
	if !r.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidTransitionError(string(r.status), string(StatusConfirmed))
	}
	r.status = StatusConfirmed
	r.confirmedAt = &now
	r.updatedAt = now
	return nil
}

// Reject transitions a PENDING reservation to REJECTED, releasing its slot.
// Only the space's host may reject.
func (r *Reservation) Reject(actor uuid.UUID, now time.Time) error {
	if actor != r.hostID {
		return domain.NewUnauthorizedError("only the space host can reject a reservation")
	}
	if !r.status.CanTransitionTo(StatusRejected) {
		return domain.NewInvalidTransitionError(string(r.status), string(StatusRejected))
	}
	r.status = StatusRejected
	r.rejectedAt = &now
	r.updatedAt = now
	return nil
}

// CancelByDriver transitions a PENDING or CONFIRMED reservation to CANCELED.
// Only the booking driver may cancel, and only while the start is at least
// leadTime away; the deadline is judged against the wall clock passed in,
// which callers read inside the transaction.
func (r *Reservation) CancelByDriver(actor uuid.UUID, now time.Time, leadTime time.Duration) error {
	if actor != r.driverID {
		return domain.NewUnauthorizedError("only the booking driver can cancel a reservation")
	}
	if !r.status.CanTransitionTo(StatusCanceled) {
		return domain.NewInvalidTransitionError(string(r.status), string(StatusCanceled))
	}
	if r.interval.Start.Sub(now) < leadTime {
		return domain.NewDeadlinePassedError(fmt.Sprintf(
			"reservations can only be canceled at least %s before the start time", leadTime))
	}
	r.status = StatusCanceled
	r.canceledAt = &now
	r.updatedAt = now
	return nil
}

// RejectBySystem force-releases a PENDING reservation without an actor
// check. Used when the catalog deactivates a space out from under its
// pending requests.
func (r *Reservation) RejectBySystem(now time.Time) error {
	if !r.status.CanTransitionTo(StatusRejected) {
		return domain.NewInvalidTransitionError(string(r.status), string(StatusRejected))
	}
	r.status = StatusRejected
	r.rejectedAt = &now
	r.updatedAt = now
	return nil
}

// Complete transitions a CONFIRMED reservation whose end has elapsed to
// COMPLETED. System-driven; the sweeper owns the schedule.
func (r *Reservation) Complete(now time.Time) error {
	if !r.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidTransitionError(string(r.status), string(StatusCompleted))
	}
	r.status = StatusCompleted
	r.completedAt = &now
	r.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Reservation) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}
