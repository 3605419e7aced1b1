package space

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProductType distinguishes the two rate plans a space can publish.
type ProductType string

const (
	ProductHourly  ProductType = "HOURLY"
	ProductDayPass ProductType = "DAY_PASS"
)

// IsValid returns true if the type is a recognized product type.
func (t ProductType) IsValid() bool {
	return t == ProductHourly || t == ProductDayPass
}

// String returns the string representation of the product type.
func (t ProductType) String() string {
	return string(t)
}

// ParseProductType converts a string to a ProductType, returning an error if invalid.
func ParseProductType(s string) (ProductType, error) {
	t := ProductType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid product type: %s", s)
	}
	return t, nil
}

// Product is a priced rate plan attached to a space. Price is in the
// currency's smallest unit. A space carries at most one active product per
// type; the application layer enforces that on create and activate.
type Product struct {
	id          uuid.UUID
	spaceID     uuid.UUID
	productType ProductType
	name        string
	price       int64
	isActive    bool
	createdAt   time.Time
	updatedAt   time.Time
}

// NewProduct creates a new active product with validated fields.
func NewProduct(spaceID uuid.UUID, productType ProductType, name string, price int64) (*Product, error) {
	if spaceID == uuid.Nil {
		return nil, fmt.Errorf("space ID is required")
	}
	if !productType.IsValid() {
		return nil, fmt.Errorf("invalid product type: %s", productType)
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	now := time.Now().UTC()
	return &Product{
		id:          uuid.New(),
		spaceID:     spaceID,
		productType: productType,
		name:        name,
		price:       price,
		isActive:    true,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructProduct rebuilds a Product from persistence data (no validation).
func ReconstructProduct(
	id, spaceID uuid.UUID,
	productType ProductType,
	name string,
	price int64,
	isActive bool,
	createdAt, updatedAt time.Time,
) *Product {
	return &Product{
		id:          id,
		spaceID:     spaceID,
		productType: productType,
		name:        name,
		price:       price,
		isActive:    isActive,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

func (p *Product) ID() uuid.UUID        { return p.id }
func (p *Product) SpaceID() uuid.UUID   { return p.spaceID }
func (p *Product) Type() ProductType    { return p.productType }
func (p *Product) Name() string         { return p.name }
func (p *Product) Price() int64         { return p.price }
func (p *Product) IsActive() bool       { return p.isActive }
func (p *Product) CreatedAt() time.Time { return p.createdAt }
func (p *Product) UpdatedAt() time.Time { return p.updatedAt }

// Deactivate retires the rate plan from new bookings.
func (p *Product) Deactivate() {
	p.isActive = false
	p.updatedAt = time.Now().UTC()
}
