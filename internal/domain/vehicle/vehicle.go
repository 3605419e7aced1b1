package vehicle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Vehicle is a driver-owned car profile. Reservations reference vehicles but
// never own them; the plate is snapshotted onto the reservation at booking
// time so later edits here do not rewrite history.
type Vehicle struct {
	id        uuid.UUID
	driverID  uuid.UUID
	plate     string
	model     string
	isDefault bool
	createdAt time.Time
	updatedAt time.Time
}

// NewVehicle creates a new vehicle profile with validated fields.
func NewVehicle(driverID uuid.UUID, plate, model string, isDefault bool) (*Vehicle, error) {
	if driverID == uuid.Nil {
		return nil, fmt.Errorf("driver ID is required")
	}
	if plate == "" {
		return nil, fmt.Errorf("plate is required")
	}

	now := time.Now().UTC()
	return &Vehicle{
		id:        uuid.New(),
		driverID:  driverID,
		plate:     plate,
		model:     model,
		isDefault: isDefault,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a Vehicle from persistence data (no validation).
func Reconstruct(
	id, driverID uuid.UUID,
	plate, model string,
	isDefault bool,
	createdAt, updatedAt time.Time,
) *Vehicle {
	return &Vehicle{
		id:        id,
		driverID:  driverID,
		plate:     plate,
		model:     model,
		isDefault: isDefault,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// --- Getters ---

func (v *Vehicle) ID() uuid.UUID        { return v.id }
func (v *Vehicle) DriverID() uuid.UUID  { return v.driverID }
func (v *Vehicle) Plate() string        { return v.plate }
func (v *Vehicle) Model() string        { return v.model }
func (v *Vehicle) IsDefault() bool      { return v.isDefault }
func (v *Vehicle) CreatedAt() time.Time { return v.createdAt }
func (v *Vehicle) UpdatedAt() time.Time { return v.updatedAt }

// IsOwnedBy checks if the vehicle belongs to the given driver.
func (v *Vehicle) IsOwnedBy(driverID uuid.UUID) bool {
	return v.driverID == driverID
}

// SetDefault marks or unmarks the vehicle as the driver's default.
func (v *Vehicle) SetDefault(isDefault bool) {
	v.isDefault = isDefault
	v.updatedAt = time.Now().UTC()
}
