package vehicle

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for vehicle profiles.
type Repository interface {
	// FindByID retrieves a vehicle by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)

	// ListByDriver retrieves all vehicles belonging to a driver.
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]*Vehicle, error)

	// Save persists a new vehicle. When the vehicle is flagged default, any
	// previous default for the driver is cleared in the same transaction.
	Save(ctx context.Context, v *Vehicle) error

	// Delete removes a vehicle profile.
	Delete(ctx context.Context, id uuid.UUID) error
}
