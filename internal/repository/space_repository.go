package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/parkshare/service-reservation/internal/domain"
	"github.com/parkshare/service-reservation/internal/domain/space"
)

// Postgres SQLSTATE for foreign key violations.
const pgForeignKeyViolation = "23503"

// SpaceModel is the GORM model for the spaces table. Weekly availability
// rules live in a jsonb column; they are always read and written with the
// space, never queried on their own.
type SpaceModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	HostID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	Title          string          `gorm:"not null;size:200"`
	Description    string          `gorm:"size:2000"`
	Address        string          `gorm:"size:500"`
	Latitude       float64         `gorm:"not null"`
	Longitude      float64         `gorm:"not null"`
	IsActive       bool            `gorm:"not null;default:true;index"`
	IsAutoApproval bool            `gorm:"not null;default:false"`
	Rules          json.RawMessage `gorm:"type:jsonb;not null;default:'[]'"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (SpaceModel) TableName() string {
	return "spaces"
}

// ProductModel is the GORM model for the products table.
type ProductModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SpaceID     uuid.UUID `gorm:"type:uuid;index;not null"`
	ProductType string    `gorm:"not null;size:20"`
	Name        string    `gorm:"size:200"`
	Price       int64     `gorm:"not null"`
	IsActive    bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ProductModel) TableName() string {
	return "products"
}

// GormSpaceRepository is the GORM-based implementation of the space
// Repository.
type GormSpaceRepository struct {
	db *gorm.DB
}

// NewGormSpaceRepository creates a new GormSpaceRepository.
func NewGormSpaceRepository(db *gorm.DB) *GormSpaceRepository {
	return &GormSpaceRepository{db: db}
}

// FindByID retrieves a space by its unique identifier.
func (r *GormSpaceRepository) FindByID(ctx context.Context, id uuid.UUID) (*space.Space, error) {
	var model SpaceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("space", id.String())
		}
		return nil, fmt.Errorf("failed to find space by ID: %w", err)
	}
	return toDomainSpace(&model)
}

// ListActive retrieves active spaces with pagination, optionally restricted
// to a bounding box.
func (r *GormSpaceRepository) ListActive(ctx context.Context, bounds *space.Bounds, page, limit int) ([]*space.Space, int64, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if bounds != nil {
		q = q.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng)
	}
	return r.listPaginated(q, page, limit)
}

// ListByHost retrieves all spaces owned by a host with pagination.
func (r *GormSpaceRepository) ListByHost(ctx context.Context, hostID uuid.UUID, page, limit int) ([]*space.Space, int64, error) {
	return r.listPaginated(r.db.WithContext(ctx).Where("host_id = ?", hostID), page, limit)
}

func (r *GormSpaceRepository) listPaginated(q *gorm.DB, page, limit int) ([]*space.Space, int64, error) {
	var total int64
	if err := q.Model(&SpaceModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count spaces: %w", err)
	}

	var models []SpaceModel
	offset := (page - 1) * limit
	if err := q.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list spaces: %w", err)
	}

	spaces := make([]*space.Space, len(models))
	for i, m := range models {
		sp, err := toDomainSpace(&m)
		if err != nil {
			return nil, 0, err
		}
		spaces[i] = sp
	}

	return spaces, total, nil
}

// Save persists a new space.
func (r *GormSpaceRepository) Save(ctx context.Context, sp *space.Space) error {
	model, err := toSpaceModel(sp)
	if err != nil {
		return fmt.Errorf("failed to convert space to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save space: %w", err)
	}
	return nil
}

// Update persists changes to an existing space with optimistic locking.
func (r *GormSpaceRepository) Update(ctx context.Context, sp *space.Space) error {
	model, err := toSpaceModel(sp)
	if err != nil {
		return fmt.Errorf("failed to convert space to model: %w", err)
	}

	expectedVersion := sp.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&SpaceModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":            model.Title,
			"description":      model.Description,
			"address":          model.Address,
			"latitude":         model.Latitude,
			"longitude":        model.Longitude,
			"is_active":        model.IsActive,
			"is_auto_approval": model.IsAutoApproval,
			"rules":            model.Rules,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update space: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("space was modified by another transaction")
	}

	return nil
}

// Delete removes a space listing and its products. Reservations keep a
// foreign key to both tables, so a space with booking history cannot be
// deleted; the violation surfaces as a conflict.
func (r *GormSpaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("space_id = ?", id).Delete(&ProductModel{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&SpaceModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("space", id.String())
		}
		return nil
	})
	if err != nil {
		if domain.CodeOf(err) != "" {
			return err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.NewConflictError("space has reservation history and cannot be deleted")
		}
		return fmt.Errorf("failed to delete space: %w", err)
	}
	return nil
}

// FindProduct retrieves a product by its unique identifier.
func (r *GormSpaceRepository) FindProduct(ctx context.Context, id uuid.UUID) (*space.Product, error) {
	var model ProductModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("product", id.String())
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return toDomainProduct(&model)
}

// ListProducts retrieves all products attached to a space.
func (r *GormSpaceRepository) ListProducts(ctx context.Context, spaceID uuid.UUID) ([]*space.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).
		Where("space_id = ?", spaceID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]*space.Product, len(models))
	for i, m := range models {
		p, err := toDomainProduct(&m)
		if err != nil {
			return nil, err
		}
		products[i] = p
	}
	return products, nil
}

// SaveProduct persists a new product.
func (r *GormSpaceRepository) SaveProduct(ctx context.Context, p *space.Product) error {
	if err := r.db.WithContext(ctx).Create(toProductModel(p)).Error; err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// UpdateProduct persists changes to an existing product.
func (r *GormSpaceRepository) UpdateProduct(ctx context.Context, p *space.Product) error {
	model := toProductModel(p)
	result := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"product_type": model.ProductType,
			"name":         model.Name,
			"price":        model.Price,
			"is_active":    model.IsActive,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("product", p.ID().String())
	}
	return nil
}

// --- Conversion Helpers ---

func toSpaceModel(sp *space.Space) (*SpaceModel, error) {
	rules := sp.Rules()
	if rules == nil {
		rules = []space.AvailabilityRule{}
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal availability rules: %w", err)
	}

	return &SpaceModel{
		ID:             sp.ID(),
		HostID:         sp.HostID(),
		Title:          sp.Title(),
		Description:    sp.Description(),
		Address:        sp.Address(),
		Latitude:       sp.Latitude(),
		Longitude:      sp.Longitude(),
		IsActive:       sp.IsActive(),
		IsAutoApproval: sp.IsAutoApproval(),
		Rules:          rulesJSON,
		Version:        sp.Version(),
		CreatedAt:      sp.CreatedAt(),
		UpdatedAt:      sp.UpdatedAt(),
	}, nil
}

func toDomainSpace(m *SpaceModel) (*space.Space, error) {
	var rules []space.AvailabilityRule
	if len(m.Rules) > 0 {
		if err := json.Unmarshal(m.Rules, &rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal availability rules: %w", err)
		}
	}

	return space.Reconstruct(
		m.ID,
		m.HostID,
		m.Title,
		m.Description,
		m.Address,
		m.Latitude,
		m.Longitude,
		m.IsActive,
		m.IsAutoApproval,
		rules,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toProductModel(p *space.Product) *ProductModel {
	return &ProductModel{
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

func toDomainProduct(m *ProductModel) (*space.Product, error) {
	productType, err := space.ParseProductType(m.ProductType)
	if err != nil {
		return nil, err
	}

	return space.ReconstructProduct(
		m.ID,
		m.SpaceID,
		productType,
		m.Name,
		m.Price,
		m.IsActive,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
