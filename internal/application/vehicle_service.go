package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/vehicle"
)

// CreateVehicleRequest holds the data needed to register a vehicle.
type CreateVehicleRequest struct {
	Plate     string `json:"plate" binding:"required"`
	Model     string `json:"model"`
	IsDefault bool   `json:"is_default"`
}

// VehicleDTO is the response representation of a vehicle.
type VehicleDTO struct {
	ID        uuid.UUID `json:"id"`
	DriverID  uuid.UUID `json:"driver_id"`
	Plate     string    `json:"plate"`
	Model     string    `json:"model,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VehicleService is the application service for the driver's vehicle
// registry.
type VehicleService struct {
	vehicles vehicle.Repository
	logger   *zap.Logger
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(vehicles vehicle.Repository, logger *zap.Logger) *VehicleService {
	return &VehicleService{vehicles: vehicles, logger: logger}
}

// CreateVehicle registers a vehicle for the given driver.
func (s *VehicleService) CreateVehicle(ctx context.Context, driverID uuid.UUID, req CreateVehicleRequest) (*VehicleDTO, error) {
	v, err := vehicle.NewVehicle(driverID, req.Plate, req.Model, req.IsDefault)
	if err != nil {
		return nil, asValidation(err)
	}

	if err := s.vehicles.Save(ctx, v); err != nil {
		return nil, err
	}

	result := toVehicleDTO(v)
	return &result, nil
}

// ListVehicles retrieves the driver's registered vehicles.
func (s *VehicleService) ListVehicles(ctx context.Context, driverID uuid.UUID) ([]VehicleDTO, error) {
	items, err := s.vehicles.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	dtos := make([]VehicleDTO, len(items))
	for i, v := range items {
		dtos[i] = toVehicleDTO(v)
	}
	return dtos, nil
}

// DeleteVehicle removes a vehicle profile owned by the driver. Reservations
// keep their plate snapshot, so history is unaffected.
func (s *VehicleService) DeleteVehicle(ctx context.Context, vehicleID, driverID uuid.UUID) error {
	v, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if !v.IsOwnedBy(driverID) {
		return domain.NewUnauthorizedError("vehicle does not belong to this driver")
	}

	return s.vehicles.Delete(ctx, vehicleID)
}

func toVehicleDTO(v *vehicle.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:        v.ID(),
		DriverID:  v.DriverID(),
		Plate:     v.Plate(),
		Model:     v.Model(),
		IsDefault: v.IsDefault(),
		CreatedAt: v.CreatedAt(),
		UpdatedAt: v.UpdatedAt(),
	}
}
