package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NeighborShare/service-booking/internal/application"
	"github.com/NeighborShare/service-booking/internal/middleware"
	"github.com/NeighborShare/service-booking/internal/response"
)

// ItemHandler handles HTTP requests for the item catalog.
type ItemHandler struct {
	service *application.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(service *application.ItemService) *ItemHandler {
	return &ItemHandler{service: service}
}

// RegisterRoutes registers all item routes on the given router group.
func (h *ItemHandler) RegisterRoutes(r *gin.RouterGroup) {
	items := r.Group("/items")
	items.Use(middleware.Identity())
	{
		items.POST("", h.CreateItem)
		items.GET("", h.ListOwnerItems)
		items.GET("/search", h.SearchItems)
		items.GET("/:id", h.GetItem)
		items.PATCH("/:id", h.UpdateItem)
		items.DELETE("/:id", h.DeleteItem)
	}
}

// CreateItem handles POST /items.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}

	var req application.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateItem(c.Request.Context(), callerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GetItem handles GET /items/:id.
func (h *ItemHandler) GetItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid item ID")
		return
	}

	result, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListOwnerItems handles GET /items (the caller's own items).
func (h *ItemHandler) ListOwnerItems(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}

	result, err := h.service.GetOwnerItems(c.Request.Context(), callerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SearchItems handles GET /items/search?text=.
func (h *ItemHandler) SearchItems(c *gin.Context) {
	result, err := h.service.SearchItems(c.Request.Context(), c.Query("text"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateItem handles PATCH /items/:id.
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid item ID")
		return
	}

	var req application.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateItem(c.Request.Context(), callerID, itemID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteItem handles DELETE /items/:id.
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid item ID")
		return
	}

	if err := h.service.DeleteItem(c.Request.Context(), callerID, itemID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
