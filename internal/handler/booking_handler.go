package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NeighborShare/service-booking/internal/application"
	bookingDomain "github.com/NeighborShare/service-booking/internal/domain/booking"
	"github.com/NeighborShare/service-booking/internal/middleware"
	"github.com/NeighborShare/service-booking/internal/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.Identity())
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListUserBookings)
		bookings.GET("/owner", h.ListOwnerBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id", h.DecideBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
	}
}

// CreateBooking handles POST /bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), callerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// DecideBooking handles PATCH /bookings/:id?approved=true|false.
func (h *BookingHandler) DecideBooking(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}
	approved, err := strconv.ParseBool(c.Query("approved"))
	if err != nil {
		response.BadRequest(c, "approved query parameter must be true or false")
		return
	}

	result, err := h.service.SetApproval(c.Request.Context(), callerID, bookingID, approved)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CancelBooking handles POST /bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), callerID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetBooking handles GET /bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), callerID, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListUserBookings handles GET /bookings?state=&from=&size=.
func (h *BookingHandler) ListUserBookings(c *gin.Context) {
	h.list(c, h.service.GetUserBookings)
}

// ListOwnerBookings handles GET /bookings/owner?state=&from=&size=.
func (h *BookingHandler) ListOwnerBookings(c *gin.Context) {
	h.list(c, h.service.GetOwnerBookings)
}

type listQuery func(ctx context.Context, userID uuid.UUID, state bookingDomain.FilterState, from, size int) ([]application.BookingDTO, error)

func (h *BookingHandler) list(c *gin.Context, query listQuery) {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		response.BadRequest(c, "caller identity missing")
		return
	}

	state, err := bookingDomain.ParseFilterState(c.DefaultQuery("state", "ALL"))
	if err != nil {
		response.Error(c, err)
		return
	}
	from, size, err := parseWindow(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := query(c.Request.Context(), callerID, state, from, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// parseWindow extracts the from/size query parameters with the listing
// defaults. Range validation happens in the application layer.
func parseWindow(c *gin.Context) (int, int, error) {
	from, err := strconv.Atoi(c.DefaultQuery("from", "0"))
	if err != nil {
		return 0, 0, err
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil {
		return 0, 0, err
	}
	return from, size, nil
}
