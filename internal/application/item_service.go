package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NeighborShare/service-booking/internal/apperr"
	itemDomain "github.com/NeighborShare/service-booking/internal/domain/item"
	userDomain "github.com/NeighborShare/service-booking/internal/domain/user"
)

// CreateItemRequest holds the data needed to register a new item.
type CreateItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Available   *bool  `json:"available" binding:"required"`
}

// UpdateItemRequest is an explicit optional-field update for an item.
type UpdateItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

// ItemDTO is the response representation of an item.
type ItemDTO struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemService manages the shared item catalog consumed by the booking core.
type ItemService struct {
	items  itemDomain.Repository
	users  userDomain.Repository
	logger *zap.Logger
}

// NewItemService creates a new ItemService.
func NewItemService(items itemDomain.Repository, users userDomain.Repository, logger *zap.Logger) *ItemService {
	return &ItemService{items: items, users: users, logger: logger}
}

// CreateItem registers a new item owned by the caller.
func (s *ItemService) CreateItem(ctx context.Context, ownerID uuid.UUID, req CreateItemRequest) (*ItemDTO, error) {
	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, err
	}

	it, err := itemDomain.NewItem(ownerID, req.Name, req.Description, req.Available != nil && *req.Available)
	if err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, it); err != nil {
		return nil, err
	}

	s.logger.Info("item created",
		zap.String("item_id", it.ID().String()),
		zap.String("owner_id", ownerID.String()),
	)
	dto := toItemDTO(it)
	return &dto, nil
}

// GetItem retrieves a single item by ID.
func (s *ItemService) GetItem(ctx context.Context, itemID uuid.UUID) (*ItemDTO, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	dto := toItemDTO(it)
	return &dto, nil
}

// GetOwnerItems lists the caller's items.
func (s *ItemService) GetOwnerItems(ctx context.Context, ownerID uuid.UUID) ([]ItemDTO, error) {
	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return nil, err
	}
	items, err := s.items.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return toItemDTOs(items), nil
}

// UpdateItem applies a partial update; only the owner may edit an item.
func (s *ItemService) UpdateItem(ctx context.Context, actorID, itemID uuid.UUID, req UpdateItemRequest) (*ItemDTO, error) {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !it.IsOwnedBy(actorID) {
		return nil, apperr.NewUnauthorizedError("only the owner may edit an item")
	}

	it.Update(req.Name, req.Description, req.Available)
	if err := s.items.Update(ctx, it); err != nil {
		return nil, err
	}

	dto := toItemDTO(it)
	return &dto, nil
}

// DeleteItem removes an item; only the owner may delete it.
func (s *ItemService) DeleteItem(ctx context.Context, actorID, itemID uuid.UUID) error {
	it, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if !it.IsOwnedBy(actorID) {
		return apperr.NewUnauthorizedError("only the owner may delete an item")
	}
	return s.items.Delete(ctx, itemID)
}

// SearchItems finds available items by text in name or description.
// A blank query returns an empty result rather than the whole catalog.
func (s *ItemService) SearchItems(ctx context.Context, text string) ([]ItemDTO, error) {
	if strings.TrimSpace(text) == "" {
		return []ItemDTO{}, nil
	}
	items, err := s.items.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	return toItemDTOs(items), nil
}

func toItemDTO(it *itemDomain.Item) ItemDTO {
	return ItemDTO{
		ID:          it.ID(),
		OwnerID:     it.OwnerID(),
		Name:        it.Name(),
		Description: it.Description(),
		Available:   it.Available(),
		CreatedAt:   it.CreatedAt(),
	}
}

func toItemDTOs(items []*itemDomain.Item) []ItemDTO {
	dtos := make([]ItemDTO, len(items))
	for i, it := range items {
		dtos[i] = toItemDTO(it)
	}
	return dtos
}
