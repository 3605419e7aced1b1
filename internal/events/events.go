package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics this service produces to or consumes from.
const (
	TopicReservationEvents = "reservation.events"
	TopicSpaceEvents       = "space.events"
)

// Event types carried on reservation.events.
const (
	ReservationRequested = "reservation.requested"
	ReservationConfirmed = "reservation.confirmed"
	ReservationRejected  = "reservation.rejected"
	ReservationCanceled  = "reservation.canceled"
	ReservationCompleted = "reservation.completed"
)

// Event types carried on space.events.
const (
	SpaceDeactivated = "space.deactivated"
)

// EventSource identifies this service in CloudEvent envelopes.
const EventSource = "service-reservation"

// ReservationEvent is the payload for every reservation lifecycle event.
type ReservationEvent struct {
	ReservationID uuid.UUID  `json:"reservation_id"`
	SpaceID       uuid.UUID  `json:"space_id"`
	HostID        uuid.UUID  `json:"host_id"`
	DriverID      uuid.UUID  `json:"driver_id"`
	Status        string     `json:"status"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         time.Time  `json:"end_at"`
	PriceTotal    int64      `json:"price_total"`
	OccurredAt    time.Time  `json:"occurred_at"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
}

// SpaceDeactivatedEvent is the payload of space.deactivated messages.
type SpaceDeactivatedEvent struct {
	SpaceID    uuid.UUID `json:"space_id"`
	HostID     uuid.UUID `json:"host_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
