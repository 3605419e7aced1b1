package space

import (
	"context"

	"github.com/google/uuid"
)

// Bounds is a geographic bounding box for listing searches.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether the point falls inside the box.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Repository defines the persistence contract for space aggregates and
// their attached products.
type Repository interface {
	// FindByID retrieves a space (with its availability rules) by identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Space, error)

	// ListActive retrieves active spaces with pagination (public search).
	// A non-nil bounds restricts results to that bounding box.
	ListActive(ctx context.Context, bounds *Bounds, page, limit int) ([]*Space, int64, error)

	// ListByHost retrieves all spaces owned by a host with pagination.
	ListByHost(ctx context.Context, hostID uuid.UUID, page, limit int) ([]*Space, int64, error)

	// Save persists a new space.
	Save(ctx context.Context, s *Space) error

	// Update persists changes to an existing space with optimistic locking.
	Update(ctx context.Context, s *Space) error

	// Delete removes a space listing.
	Delete(ctx context.Context, id uuid.UUID) error

	// FindProduct retrieves a product by identifier.
	FindProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// ListProducts retrieves all products attached to a space.
	ListProducts(ctx context.Context, spaceID uuid.UUID) ([]*Product, error)

	// SaveProduct persists a new product.
	SaveProduct(ctx context.Context, p *Product) error

	// UpdateProduct persists changes to an existing product.
	UpdateProduct(ctx context.Context, p *Product) error
}
