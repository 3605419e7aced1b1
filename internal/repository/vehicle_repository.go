package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/vehicle"
)

// VehicleModel is the GORM model for the vehicles table.
type VehicleModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	DriverID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Plate     string    `gorm:"not null;size:20"`
	Model     string    `gorm:"size:100"`
	IsDefault bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (VehicleModel) TableName() string {
	return "vehicles"
}

// GormVehicleRepository is the GORM-based implementation of the vehicle
// Repository.
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewGormVehicleRepository creates a new GormVehicleRepository.
func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

// FindByID retrieves a vehicle by its unique identifier.
func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	var model VehicleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("vehicle", id.String())
		}
		return nil, fmt.Errorf("failed to find vehicle by ID: %w", err)
	}
	return toDomainVehicle(&model), nil
}

// ListByDriver retrieves all vehicles belonging to a driver, default first.
func (r *GormVehicleRepository) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]*vehicle.Vehicle, error) {
	var models []VehicleModel
	if err := r.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("is_default DESC, created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	vehicles := make([]*vehicle.Vehicle, len(models))
	for i, m := range models {
		vehicles[i] = toDomainVehicle(&m)
	}
	return vehicles, nil
}

// Save persists a new vehicle. A new default clears the driver's previous
// default in the same transaction.
func (r *GormVehicleRepository) Save(ctx context.Context, v *vehicle.Vehicle) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if v.IsDefault() {
			if err := tx.Model(&VehicleModel{}).
				Where("driver_id = ? AND is_default = ?", v.DriverID(), true).
				Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to clear previous default vehicle: %w", err)
			}
		}

		if err := tx.Create(toVehicleModel(v)).Error; err != nil {
			return fmt.Errorf("failed to save vehicle: %w", err)
		}
		return nil
	})
}

// Delete removes a vehicle profile.
func (r *GormVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&VehicleModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("vehicle", id.String())
	}
	return nil
}

// --- Conversion Helpers ---

func toVehicleModel(v *vehicle.Vehicle) *VehicleModel {
	return &VehicleModel{
		ID:        v.ID(),
		DriverID:  v.DriverID(),
		Plate:     v.Plate(),
		Model:     v.Model(),
		IsDefault: v.IsDefault(),
		CreatedAt: v.CreatedAt(),
		UpdatedAt: v.UpdatedAt(),
	}
}

func toDomainVehicle(m *VehicleModel) *vehicle.Vehicle {
	return vehicle.Reconstruct(
		m.ID,
		m.DriverID,
		m.Plate,
		m.Model,
		m.IsDefault,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
