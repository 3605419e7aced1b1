package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/space"
	"github.com/parkshare/service-reservation/internal/events"
	"github.com/parkshare/service-reservation/internal/kafka"
)

// CreateSpaceRequest holds the data needed to list a new space.
type CreateSpaceRequest struct {
	Title          string                   `json:"title" binding:"required"`
	Description    string                   `json:"description"`
	Address        string                   `json:"address" binding:"required"`
	Latitude       float64                  `json:"latitude" binding:"required"`
	Longitude      float64                  `json:"longitude" binding:"required"`
	IsAutoApproval bool                     `json:"is_auto_approval"`
	Rules          []space.AvailabilityRule `json:"rules"`
}

// UpdateSpaceRequest holds partial updates to a space listing.
type UpdateSpaceRequest struct {
	Title          string                    `json:"title"`
	Description    string                    `json:"description"`
	Address        string                    `json:"address"`
	Latitude       *float64                  `json:"latitude"`
	Longitude      *float64                  `json:"longitude"`
	IsAutoApproval *bool                     `json:"is_auto_approval"`
	Rules          *[]space.AvailabilityRule `json:"rules"`
}

// CreateProductRequest holds the data needed to attach a rate plan.
type CreateProductRequest struct {
	ProductType string `json:"product_type" binding:"required"`
	Name        string `json:"name"`
	Price       int64  `json:"price" binding:"required"`
}

// SpaceDTO is the response representation of a space.
type SpaceDTO struct {
	ID             uuid.UUID                `json:"id"`
	HostID         uuid.UUID                `json:"host_id"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description,omitempty"`
	Address        string                   `json:"address"`
	Latitude       float64                  `json:"latitude"`
	Longitude      float64                  `json:"longitude"`
	IsActive       bool                     `json:"is_active"`
	IsAutoApproval bool                     `json:"is_auto_approval"`
	Rules          []space.AvailabilityRule `json:"rules"`
	Version        int64                    `json:"version"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// ProductDTO is the response representation of a rate plan.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	SpaceID     uuid.UUID `json:"space_id"`
	ProductType string    `json:"product_type"`
	Name        string    `json:"name,omitempty"`
	Price       int64     `json:"price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SpaceService is the application service for the space catalog.
type SpaceService struct {
	spaces   space.Repository
	producer EventPublisher
	logger   *zap.Logger
}

// NewSpaceService creates a new SpaceService.
func NewSpaceService(spaces space.Repository, producer EventPublisher, logger *zap.Logger) *SpaceService {
	return &SpaceService{spaces: spaces, producer: producer, logger: logger}
}

// CreateSpace lists a new space for the given host.
func (s *SpaceService) CreateSpace(ctx context.Context, hostID uuid.UUID, req CreateSpaceRequest) (*SpaceDTO, error) {
	sp, err := space.NewSpace(
		hostID,
		req.Title,
		req.Description,
		req.Address,
		req.Latitude,
		req.Longitude,
		req.IsAutoApproval,
		req.Rules,
	)
	if err != nil {
		return nil, asValidation(err)
	}

	if err := s.spaces.Save(ctx, sp); err != nil {
		return nil, err
	}

	result := toSpaceDTO(sp)
	return &result, nil
}

// GetSpace retrieves a single space by ID.
func (s *SpaceService) GetSpace(ctx context.Context, spaceID uuid.UUID) (*SpaceDTO, error) {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	result := toSpaceDTO(sp)
	return &result, nil
}

// ListActiveSpaces retrieves paginated active spaces (public search),
// optionally restricted to a map viewport.
func (s *SpaceService) ListActiveSpaces(ctx context.Context, bounds *space.Bounds, page, limit int) (*domain.PaginatedResult[SpaceDTO], error) {
	items, total, err := s.spaces.ListActive(ctx, bounds, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]SpaceDTO, len(items))
	for i, sp := range items {
		dtos[i] = toSpaceDTO(sp)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// ListHostSpaces retrieves paginated spaces owned by a host, active or not.
func (s *SpaceService) ListHostSpaces(ctx context.Context, hostID uuid.UUID, page, limit int) (*domain.PaginatedResult[SpaceDTO], error) {
	items, total, err := s.spaces.ListByHost(ctx, hostID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]SpaceDTO, len(items))
	for i, sp := range items {
		dtos[i] = toSpaceDTO(sp)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// UpdateSpace applies partial updates to a host's listing.
func (s *SpaceService) UpdateSpace(ctx context.Context, spaceID, hostID uuid.UUID, req UpdateSpaceRequest) (*SpaceDTO, error) {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if !sp.IsOwnedBy(hostID) {
		return nil, domain.NewUnauthorizedError("space does not belong to this host")
	}

	if err := sp.Update(req.Title, req.Description, req.Address, req.Latitude, req.Longitude, req.IsAutoApproval); err != nil {
		return nil, asValidation(err)
	}
	if req.Rules != nil {
		if err := sp.ReplaceRules(*req.Rules); err != nil {
			return nil, asValidation(err)
		}
	}

	if err := s.spaces.Update(ctx, sp); err != nil {
		return nil, err
	}

	result := toSpaceDTO(sp)
	return &result, nil
}

// SetSpaceActive toggles a listing's visibility. Deactivation emits a
// space.deactivated event; the engine's catalog consumer reacts by rejecting
// the space's pending reservations, so the release path is the same whether
// the deactivation originates here or in another service.
func (s *SpaceService) SetSpaceActive(ctx context.Context, spaceID, hostID uuid.UUID, active bool) (*SpaceDTO, error) {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if !sp.IsOwnedBy(hostID) {
		return nil, domain.NewUnauthorizedError("space does not belong to this host")
	}

	sp.SetActive(active)
	if err := s.spaces.Update(ctx, sp); err != nil {
		return nil, err
	}

	if !active {
		s.publishSpaceDeactivated(ctx, sp)
	}

	result := toSpaceDTO(sp)
	return &result, nil
}

// DeleteSpace removes a host's listing outright. Spaces with reservation
// history cannot be deleted (the repository reports a conflict); hosts
// deactivate those instead. A successful delete still announces
// space.deactivated so downstream caches drop the listing.
func (s *SpaceService) DeleteSpace(ctx context.Context, spaceID, hostID uuid.UUID) error {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if !sp.IsOwnedBy(hostID) {
		return domain.NewUnauthorizedError("space does not belong to this host")
	}

	if err := s.spaces.Delete(ctx, spaceID); err != nil {
		return err
	}

	s.publishSpaceDeactivated(ctx, sp)
	return nil
}

// CreateProduct attaches a new rate plan to a host's space. At most one
// active product per type is allowed.
func (s *SpaceService) CreateProduct(ctx context.Context, spaceID, hostID uuid.UUID, req CreateProductRequest) (*ProductDTO, error) {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if !sp.IsOwnedBy(hostID) {
		return nil, domain.NewUnauthorizedError("space does not belong to this host")
	}

	productType, err := space.ParseProductType(req.ProductType)
	if err != nil {
		return nil, asValidation(err)
	}

	existing, err := s.spaces.ListProducts(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if p.IsActive() && p.Type() == productType {
			return nil, domain.NewValidationError("space already has an active product of this type")
		}
	}

	product, err := space.NewProduct(spaceID, productType, req.Name, req.Price)
	if err != nil {
		return nil, asValidation(err)
	}

	if err := s.spaces.SaveProduct(ctx, product); err != nil {
		return nil, err
	}

	result := toProductDTO(product)
	return &result, nil
}

// ListProducts retrieves every rate plan attached to a space.
func (s *SpaceService) ListProducts(ctx context.Context, spaceID uuid.UUID) ([]ProductDTO, error) {
	products, err := s.spaces.ListProducts(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	return dtos, nil
}

// DeactivateProduct retires a rate plan from new bookings.
func (s *SpaceService) DeactivateProduct(ctx context.Context, spaceID, productID, hostID uuid.UUID) (*ProductDTO, error) {
	sp, err := s.spaces.FindByID(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if !sp.IsOwnedBy(hostID) {
		return nil, domain.NewUnauthorizedError("space does not belong to this host")
	}

	product, err := s.spaces.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SpaceID() != spaceID {
		return nil, domain.NewNotFoundError("product", productID.String())
	}

	product.Deactivate()
	if err := s.spaces.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}

	result := toProductDTO(product)
	return &result, nil
}

// --- Helpers ---

func toSpaceDTO(sp *space.Space) SpaceDTO {
	return SpaceDTO{
		ID:             sp.ID(),
		HostID:         sp.HostID(),
		Title:          sp.Title(),
		Description:    sp.Description(),
		Address:        sp.Address(),
		Latitude:       sp.Latitude(),
		Longitude:      sp.Longitude(),
		IsActive:       sp.IsActive(),
		IsAutoApproval: sp.IsAutoApproval(),
		Rules:          sp.Rules(),
		Version:        sp.Version(),
		CreatedAt:      sp.CreatedAt(),
		UpdatedAt:      sp.UpdatedAt(),
	}
}

func toProductDTO(p *space.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID(),
		SpaceID:     p.SpaceID(),
		ProductType: p.Type().String(),
		Name:        p.Name(),
		Price:       p.Price(),
		IsActive:    p.IsActive(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

func (s *SpaceService) publishSpaceDeactivated(ctx context.Context, sp *space.Space) {
	evt := events.SpaceDeactivatedEvent{
		SpaceID:    sp.ID(),
		HostID:     sp.HostID(),
		OccurredAt: time.Now().UTC(),
	}

	cloudEvent, err := kafka.NewCloudEvent(events.EventSource, events.SpaceDeactivated, evt)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", events.SpaceDeactivated),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.Publish(ctx, events.TopicSpaceEvents, sp.ID().String(), cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", events.TopicSpaceEvents),
			zap.String("event_type", events.SpaceDeactivated),
			zap.Error(err),
		)
	}
}

// asValidation maps plain constructor errors onto the validation domain
// error so transport layers return 400 rather than 500.
func asValidation(err error) error {
	if domain.CodeOf(err) != "" {
		return err
	}
	return domain.NewValidationError(err.Error())
}
