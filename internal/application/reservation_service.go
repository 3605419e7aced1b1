package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/reservation"
	"github.com/parkshare/service-reservation/internal/domain/space"
	"github.com/parkshare/service-reservation/internal/domain/vehicle"
	"github.com/parkshare/service-reservation/internal/events"
	"github.com/parkshare/service-reservation/internal/kafka"
)

// CreateReservationRequest holds the data needed to request a reservation.
// Either vehicle_id or plate identifies the vehicle; vehicle_id wins when
// both are present.
type CreateReservationRequest struct {
	ProductID uuid.UUID  `json:"product_id" binding:"required"`
	StartAt   time.Time  `json:"start_at" binding:"required"`
	EndAt     time.Time  `json:"end_at" binding:"required"`
	VehicleID *uuid.UUID `json:"vehicle_id"`
	Plate     string     `json:"plate"`
}

// ReservationDTO is the response representation of a reservation.
type ReservationDTO struct {
	ID          uuid.UUID  `json:"id"`
	SpaceID     uuid.UUID  `json:"space_id"`
	HostID      uuid.UUID  `json:"host_id"`
	ProductID   uuid.UUID  `json:"product_id"`
	DriverID    uuid.UUID  `json:"driver_id"`
	VehicleID   *uuid.UUID `json:"vehicle_id,omitempty"`
	Plate       string     `json:"plate,omitempty"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	PriceTotal  int64      `json:"price_total"`
	Status      string     `json:"status"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EventPublisher is the slice of the Kafka producer the services need.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// ReservationService is the application service orchestrating reservation
// use cases. All clock reads happen here and are passed down into the
// aggregate, so time-window guards are judged once per request.
type ReservationService struct {
	reservations reservation.Repository
	spaces       space.Repository
	vehicles     vehicle.Repository
	pricing      reservation.PricingPolicy
	producer     EventPublisher
	cancelLead   time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewReservationService creates a new ReservationService.
func NewReservationService(
	reservations reservation.Repository,
	spaces space.Repository,
	vehicles vehicle.Repository,
	pricing reservation.PricingPolicy,
	producer EventPublisher,
	cancelLead time.Duration,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		spaces:       spaces,
		vehicles:     vehicles,
		pricing:      pricing,
		producer:     producer,
		cancelLead:   cancelLead,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation validates the request against the catalog, prices the
// interval, and attempts the atomic slot claim. The initial status follows
// the space's approval mode.
func (s *ReservationService) CreateReservation(ctx context.Context, driverID uuid.UUID, req CreateReservationRequest) (*ReservationDTO, error) {
	product, err := s.spaces.FindProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, domain.NewNotFoundError("product", req.ProductID.String())
	}

	sp, err := s.spaces.FindByID(ctx, product.SpaceID())
	if err != nil {
		return nil, err
	}
	if !sp.IsActive() {
		return nil, domain.NewSpaceInactiveError(sp.ID().String())
	}

	now := s.now()
	if !req.StartAt.After(now) {
		return nil, domain.NewInvalidIntervalError("start time must be in the future")
	}

	ivl := reservation.NewInterval(req.StartAt, req.EndAt)
	if !ivl.IsValid() {
		return nil, domain.NewInvalidIntervalError("end time must be after start time")
	}

	priceTotal, err := s.pricing.Quote(product, ivl)
	if err != nil {
		return nil, err
	}

	if !sp.CoversInterval(req.StartAt, req.EndAt) {
		return nil, domain.NewValidationError("requested interval is outside the space's availability hours")
	}

	vehicleID, plate, err := s.resolveVehicle(ctx, driverID, req)
	if err != nil {
		return nil, err
	}

	res, err := reservation.NewReservation(
		sp.ID(),
		sp.HostID(),
		product.ID(),
		driverID,
		vehicleID,
		plate,
		ivl,
		priceTotal,
		sp.IsAutoApproval(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.reservations.CreateIfSlotFree(ctx, res); err != nil {
		return nil, err
	}

	s.publishReservationEvent(ctx, events.ReservationRequested, res, nil)
	if res.Status() == reservation.StatusConfirmed {
		s.publishReservationEvent(ctx, events.ReservationConfirmed, res, nil)
	}

	result := toReservationDTO(res)
	return &result, nil
}

// AvailabilityDTO is the answer to a public availability probe.
type AvailabilityDTO struct {
	SpaceID   uuid.UUID `json:"space_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
}

// CheckAvailability reports whether the interval could currently be booked
// on the space. The answer is advisory: the authoritative check happens
// inside the slot claim at creation time.
func (s *ReservationService) CheckAvailability(ctx context.Context, spaceID uuid.UUID, startAt, endAt time.Time) (*AvailabilityDTO, error) {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	ivl := reservation.NewInterval(startAt, endAt)
	if !ivl.IsValid() {
		return nil, domain.NewInvalidIntervalError("end time must be after start time")
	}

	result := &AvailabilityDTO{SpaceID: spaceID, StartAt: startAt, EndAt: endAt}

	switch {
	case !sp.IsActive():
		result.Reason = "space is not active"
	case !sp.CoversInterval(startAt, endAt):
		result.Reason = "interval is outside the space's availability hours"
	default:
		count, err := s.reservations.CountOverlapping(ctx, spaceID, startAt, endAt, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			result.Reason = "interval overlaps an existing reservation"
		} else {
			result.Available = true
		}
	}

	return result, nil
}

// resolveVehicle snapshots the plate onto the reservation. A registered
// vehicle must belong to the requesting driver; a bare plate is accepted for
// one-off vehicles.
func (s *ReservationService) resolveVehicle(ctx context.Context, driverID uuid.UUID, req CreateReservationRequest) (*uuid.UUID, string, error) {
	if req.VehicleID != nil {
		v, err := s.vehicles.FindByID(ctx, *req.VehicleID)
		if err != nil {
			return nil, "", err
		}
		if !v.IsOwnedBy(driverID) {
			return nil, "", domain.NewUnauthorizedError("vehicle does not belong to this driver")
		}
		id := v.ID()
		return &id, v.Plate(), nil
	}
	if req.Plate == "" {
		return nil, "", domain.NewValidationError("either vehicle_id or plate is required")
	}
	return nil, req.Plate, nil
}

// ApproveReservation confirms a pending reservation on behalf of the host.
func (s *ReservationService) ApproveReservation(ctx context.Context, reservationID, actorID uuid.UUID) (*ReservationDTO, error) {
	res, err := s.transition(ctx, reservationID, func(r *reservation.Reservation) error {
		return r.Approve(actorID, s.now())
	})
	if err != nil {
		return nil, err
	}

	actor := actorID
	s.publishReservationEvent(ctx, events.ReservationConfirmed, res, &actor)

	result := toReservationDTO(res)
	return &result, nil
}

// RejectReservation declines a pending reservation on behalf of the host,
// releasing its slot.
func (s *ReservationService) RejectReservation(ctx context.Context, reservationID, actorID uuid.UUID) (*ReservationDTO, error) {
	res, err := s.transition(ctx, reservationID, func(r *reservation.Reservation) error {
		return r.Reject(actorID, s.now())
	})
	if err != nil {
		return nil, err
	}

	actor := actorID
	s.publishReservationEvent(ctx, events.ReservationRejected, res, &actor)

	result := toReservationDTO(res)
	return &result, nil
}

// CancelReservation cancels a reservation on behalf of the driver, enforcing
// the cancellation lead time.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID, actorID uuid.UUID) (*ReservationDTO, error) {
	res, err := s.transition(ctx, reservationID, func(r *reservation.Reservation) error {
		return r.CancelByDriver(actorID, s.now(), s.cancelLead)
	})
	if err != nil {
		return nil, err
	}

	actor := actorID
	s.publishReservationEvent(ctx, events.ReservationCanceled, res, &actor)

	result := toReservationDTO(res)
	return &result, nil
}

// GetReservation retrieves a reservation visible to the given actor. Only
// the booking driver and the space host can read it.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID, actorID uuid.UUID) (*ReservationDTO, error) {
	res, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.DriverID() != actorID && res.HostID() != actorID {
		return nil, domain.NewUnauthorizedError("reservation is not visible to this user")
	}
	result := toReservationDTO(res)
	return &result, nil
}

// GetDriverReservations retrieves paginated reservations made by a driver.
func (s *ReservationService) GetDriverReservations(ctx context.Context, driverID uuid.UUID, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	items, total, err := s.reservations.FindByDriver(ctx, driverID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]ReservationDTO, len(items))
	for i, r := range items {
		dtos[i] = toReservationDTO(r)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// GetHostReservations retrieves paginated reservations incoming to a host's
// spaces.
func (s *ReservationService) GetHostReservations(ctx context.Context, hostID uuid.UUID, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	items, total, err := s.reservations.FindByHost(ctx, hostID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]ReservationDTO, len(items))
	for i, r := range items {
		dtos[i] = toReservationDTO(r)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// RejectPendingBySpace force-rejects every pending reservation on a space.
// Called when the catalog deactivates the space. Returns the number of
// reservations rejected.
func (s *ReservationService) RejectPendingBySpace(ctx context.Context, spaceID uuid.UUID) (int, error) {
	pending, err := s.reservations.FindPendingBySpace(ctx, spaceID)
	if err != nil {
		return 0, err
	}

	rejected := 0
	for _, p := range pending {
		res, err := s.transition(ctx, p.ID(), func(r *reservation.Reservation) error {
			return r.RejectBySystem(s.now())
		})
		if err != nil {
			// A reservation that raced into a terminal state no longer
			// needs rejecting.
			if domain.IsCode(err, domain.CodeInvalidTransition) {
				continue
			}
			return rejected, err
		}
		s.publishReservationEvent(ctx, events.ReservationRejected, res, nil)
		rejected++
	}
	return rejected, nil
}

// CompleteDueReservations transitions every confirmed reservation whose end
// time has passed to COMPLETED. Called by the completion sweeper. Returns
// the number of reservations completed.
func (s *ReservationService) CompleteDueReservations(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.reservations.FindConfirmedEndedBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, d := range due {
		res, err := s.transition(ctx, d.ID(), func(r *reservation.Reservation) error {
			return r.Complete(s.now())
		})
		if err != nil {
			if domain.IsCode(err, domain.CodeInvalidTransition) {
				continue
			}
			s.logger.Error("failed to complete reservation",
				zap.String("reservation_id", d.ID().String()),
				zap.Error(err),
			)
			continue
		}
		s.publishReservationEvent(ctx, events.ReservationCompleted, res, nil)
		completed++
	}
	return completed, nil
}

// transition loads the reservation, applies the mutation, and persists it
// under optimistic locking. A lost version race is retried once against
// fresh state; the retry re-runs the mutation's own guards, so a transition
// that became illegal in the meantime fails with the guard's error rather
// than a conflict.
func (s *ReservationService) transition(ctx context.Context, id uuid.UUID, mutate func(*reservation.Reservation) error) (*reservation.Reservation, error) {
	const attempts = 2

	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := s.reservations.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := mutate(res); err != nil {
			return nil, err
		}

		res.IncrementVersion()
		if err := s.reservations.Update(ctx, res); err != nil {
			if domain.IsCode(err, domain.CodeConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("reservation %s update lost the version race twice: %w", id, lastErr)
}

// --- Helpers ---

func toReservationDTO(r *reservation.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:          r.ID(),
		SpaceID:     r.SpaceID(),
		HostID:      r.HostID(),
		ProductID:   r.ProductID(),
		DriverID:    r.DriverID(),
		VehicleID:   r.VehicleID(),
		Plate:       r.Plate(),
		StartAt:     r.StartAt(),
		EndAt:       r.EndAt(),
		PriceTotal:  r.PriceTotal(),
		Status:      string(r.Status()),
		ConfirmedAt: r.ConfirmedAt(),
		RejectedAt:  r.RejectedAt(),
		CanceledAt:  r.CanceledAt(),
		CompletedAt: r.CompletedAt(),
		Version:     r.Version(),
		CreatedAt:   r.CreatedAt(),
		UpdatedAt:   r.UpdatedAt(),
	}
}

func (s *ReservationService) publishReservationEvent(ctx context.Context, eventType string, r *reservation.Reservation, actorID *uuid.UUID) {
	evt := events.ReservationEvent{
		ReservationID: r.ID(),
		SpaceID:       r.SpaceID(),
		HostID:        r.HostID(),
		DriverID:      r.DriverID(),
		Status:        string(r.Status()),
		StartAt:       r.StartAt(),
		EndAt:         r.EndAt(),
		PriceTotal:    r.PriceTotal(),
		OccurredAt:    time.Now().UTC(),
		ActorID:       actorID,
	}

	cloudEvent, err := kafka.NewCloudEvent(events.EventSource, eventType, evt)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.Publish(ctx, events.TopicReservationEvents, r.ID().String(), cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", events.TopicReservationEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
