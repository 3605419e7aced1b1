package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/reservation"
)

// ReservationModel is the GORM model for the reservations table.
type ReservationModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SpaceID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	HostID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null"`
	DriverID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	VehicleID   *uuid.UUID `gorm:"type:uuid"`
	Plate       string     `gorm:"size:20"`
	StartAt     time.Time  `gorm:"not null;index"`
	EndAt       time.Time  `gorm:"not null"`
	PriceTotal  int64      `gorm:"not null"`
	Status      string     `gorm:"not null;size:20;index"`
	ConfirmedAt *time.Time `gorm:""`
	RejectedAt  *time.Time `gorm:""`
	CanceledAt  *time.Time `gorm:""`
	CompletedAt *time.Time `gorm:""`
	Version     int64      `gorm:"not null;default:1"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReservationModel) TableName() string {
	return "reservations"
}

// occupyingStatuses are the statuses that hold a slot on the calendar.
var occupyingStatuses = []string{
	string(reservation.StatusPending),
	string(reservation.StatusConfirmed),
}

// GormReservationRepository is the GORM-based implementation of the
// reservation Repository.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository.
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID retrieves a reservation by its unique identifier.
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	var model ReservationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("reservation", id.String())
		}
		return nil, fmt.Errorf("failed to find reservation by ID: %w", err)
	}
	return toDomainReservation(&model)
}

// FindByDriver retrieves a driver's reservations with pagination.
func (r *GormReservationRepository) FindByDriver(ctx context.Context, driverID uuid.UUID, page, limit int) ([]*reservation.Reservation, int64, error) {
	return r.findPaginated(ctx, "driver_id = ?", driverID, page, limit)
}

// FindByHost retrieves reservations incoming to a host's spaces with
// pagination.
func (r *GormReservationRepository) FindByHost(ctx context.Context, hostID uuid.UUID, page, limit int) ([]*reservation.Reservation, int64, error) {
	return r.findPaginated(ctx, "host_id = ?", hostID, page, limit)
}

func (r *GormReservationRepository) findPaginated(ctx context.Context, cond string, arg uuid.UUID, page, limit int) ([]*reservation.Reservation, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).Where(cond, arg).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	var models []ReservationModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find reservations: %w", err)
	}

	reservations := make([]*reservation.Reservation, len(models))
	for i, m := range models {
		res, err := toDomainReservation(&m)
		if err != nil {
			return nil, 0, err
		}
		reservations[i] = res
	}

	return reservations, total, nil
}

// FindPendingBySpace retrieves a space's PENDING reservations.
func (r *GormReservationRepository) FindPendingBySpace(ctx context.Context, spaceID uuid.UUID) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("space_id = ? AND status = ?", spaceID, string(reservation.StatusPending)).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find pending reservations: %w", err)
	}

	reservations := make([]*reservation.Reservation, len(models))
	for i, m := range models {
		res, err := toDomainReservation(&m)
		if err != nil {
			return nil, err
		}
		reservations[i] = res
	}
	return reservations, nil
}

// FindConfirmedEndedBefore retrieves CONFIRMED reservations whose end has
// passed, for the completion sweeper.
func (r *GormReservationRepository) FindConfirmedEndedBefore(ctx context.Context, cutoff time.Time) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", string(reservation.StatusConfirmed), cutoff).
		Order("end_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find ended reservations: %w", err)
	}

	reservations := make([]*reservation.Reservation, len(models))
	for i, m := range models {
		res, err := toDomainReservation(&m)
		if err != nil {
			return nil, err
		}
		reservations[i] = res
	}
	return reservations, nil
}

// CountOverlapping counts occupying reservations on the space that conflict
// with [start, end). Half-open semantics: back-to-back intervals do not
// overlap.
func (r *GormReservationRepository) CountOverlapping(ctx context.Context, spaceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int64, error) {
	return countOverlapping(r.db.WithContext(ctx), spaceID, start, end, excludeID)
}

func countOverlapping(tx *gorm.DB, spaceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int64, error) {
	q := tx.Model(&ReservationModel{}).
		Where("space_id = ?", spaceID).
		Where("status IN ?", occupyingStatuses).
		Where("start_at < ? AND end_at > ?", end, start)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count overlapping reservations: %w", err)
	}
	return count, nil
}

// CreateIfSlotFree persists a new reservation after re-running the overlap
// check under a per-space lock. The space row is locked FOR UPDATE for the
// duration of the transaction, serializing concurrent claims on the same
// calendar; the winner inserts, the loser sees the winner's row in the
// overlap count and gets a slot conflict.
func (r *GormReservationRepository) CreateIfSlotFree(ctx context.Context, res *reservation.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lock SpaceModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", res.SpaceID()).
			First(&lock).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("space", res.SpaceID().String())
			}
			return fmt.Errorf("failed to lock space row: %w", err)
		}

		count, err := countOverlapping(tx, res.SpaceID(), res.StartAt(), res.EndAt(), uuid.Nil)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.NewSlotConflictError("requested interval overlaps an existing reservation")
		}

		if err := tx.Create(toReservationModel(res)).Error; err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}
		return nil
	})
}

// Update persists changes to an existing reservation with optimistic locking.
func (r *GormReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)

	// Only update if the version matches (current version - 1, since
	// IncrementVersion was called before persisting).
	expectedVersion := res.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"confirmed_at": model.ConfirmedAt,
			"rejected_at":  model.RejectedAt,
			"canceled_at":  model.CanceledAt,
			"completed_at": model.CompletedAt,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update reservation: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("reservation was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toReservationModel(res *reservation.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:          res.ID(),
		SpaceID:     res.SpaceID(),
		HostID:      res.HostID(),
		ProductID:   res.ProductID(),
		DriverID:    res.DriverID(),
		VehicleID:   res.VehicleID(),
		Plate:       res.Plate(),
		StartAt:     res.StartAt(),
		EndAt:       res.EndAt(),
		PriceTotal:  res.PriceTotal(),
		Status:      string(res.Status()),
		ConfirmedAt: res.ConfirmedAt(),
		RejectedAt:  res.RejectedAt(),
		CanceledAt:  res.CanceledAt(),
		CompletedAt: res.CompletedAt(),
		Version:     res.Version(),
		CreatedAt:   res.CreatedAt(),
		UpdatedAt:   res.UpdatedAt(),
	}
}

func toDomainReservation(m *ReservationModel) (*reservation.Reservation, error) {
	status, err := reservation.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return reservation.Reconstruct(
		m.ID,
		m.SpaceID,
		m.HostID,
		m.ProductID,
		m.DriverID,
		m.VehicleID,
		m.Plate,
		reservation.NewInterval(m.StartAt, m.EndAt),
		m.PriceTotal,
		status,
		m.ConfirmedAt,
		m.RejectedAt,
		m.CanceledAt,
		m.CompletedAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
