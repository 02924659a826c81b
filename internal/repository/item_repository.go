package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeighborShare/service-booking/internal/apperr"
	itemDomain "github.com/NeighborShare/service-booking/internal/domain/item"
)

// ItemModel is the GORM model for the items table.
type ItemModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Name        string    `gorm:"not null;size:255"`
	Description string    `gorm:"not null;size:2000"`
	Available   bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ItemModel) TableName() string {
	return "items"
}

// GormItemRepository is the GORM-based implementation of item.Repository.
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository.
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID retrieves an item by its unique identifier.
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*itemDomain.Item, error) {
	var model ItemModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Item", id.String())
		}
		return nil, fmt.Errorf("failed to find item by ID: %w", err)
	}
	return toDomainItem(&model), nil
}

// FindByOwnerID retrieves all items belonging to the given owner.
func (r *GormItemRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*itemDomain.Item, error) {
	var models []ItemModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find items by owner: %w", err)
	}
	return toDomainItems(models), nil
}

// Search returns available items matching the text in name or description.
func (r *GormItemRepository) Search(ctx context.Context, text string) ([]*itemDomain.Item, error) {
	var models []ItemModel
	pattern := "%" + text + "%"
	if err := r.db.WithContext(ctx).
		Where("available = true").
		Where("name ILIKE ? OR description ILIKE ?", pattern, pattern).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return toDomainItems(models), nil
}

// Save persists a new item.
func (r *GormItemRepository) Save(ctx context.Context, item *itemDomain.Item) error {
	if err := r.db.WithContext(ctx).Create(toItemModel(item)).Error; err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// Update persists changes to an existing item.
func (r *GormItemRepository) Update(ctx context.Context, item *itemDomain.Item) error {
	result := r.db.WithContext(ctx).
		Model(&ItemModel{}).
		Where("id = ?", item.ID()).
		Updates(map[string]interface{}{
			"name":        item.Name(),
			"description": item.Description(),
			"available":   item.Available(),
			"updated_at":  item.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewNotFoundError("Item", item.ID().String())
	}
	return nil
}

// Delete removes an item by ID.
func (r *GormItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&ItemModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func toItemModel(i *itemDomain.Item) *ItemModel {
	return &ItemModel{
		ID:          i.ID(),
		OwnerID:     i.OwnerID(),
		Name:        i.Name(),
		Description: i.Description(),
		Available:   i.Available(),
		CreatedAt:   i.CreatedAt(),
		UpdatedAt:   i.UpdatedAt(),
	}
}

func toDomainItem(m *ItemModel) *itemDomain.Item {
	return itemDomain.Reconstruct(m.ID, m.OwnerID, m.Name, m.Description, m.Available, m.CreatedAt, m.UpdatedAt)
}

func toDomainItems(models []ItemModel) []*itemDomain.Item {
	items := make([]*itemDomain.Item, len(models))
	for i := range models {
		items[i] = toDomainItem(&models[i])
	}
	return items
}
