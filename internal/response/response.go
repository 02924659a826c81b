package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NeighborShare/service-booking/internal/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Success writes a 200 response with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created writes a 201 response with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent writes a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: message})
}

// Error maps a domain error onto its HTTP status: not-found 404,
// validation 400, unauthorized 403, conflict 409, anything else 500.
func Error(c *gin.Context, err error) {
	var notFound *apperr.NotFoundError
	var validation *apperr.ValidationError
	var unauthorized *apperr.UnauthorizedError
	var conflict *apperr.ConflictError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, ErrorBody{Error: err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorBody{Error: err.Error()})
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusForbidden, ErrorBody{Error: err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, ErrorBody{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal server error"})
	}
}
