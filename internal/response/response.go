package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parkshare/service-reservation/internal/domain"
)

// envelope is the uniform success body: {"data": ...}.
type envelope struct {
	Data interface{} `json:"data"`
}

// errorBody is the uniform error body: {"error": {"code", "message"}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// pagination mirrors domain.PaginatedResult metadata for list responses.
type pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

type paginatedEnvelope struct {
	Data       interface{} `json:"data"`
	Pagination pagination  `json:"pagination"`
}

// Success writes a 200 response with the data envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Data: data})
}

// Created writes a 201 response with the data envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Data: data})
}

// NoContent writes a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes a 200 response with items plus paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, paginatedEnvelope{
		Data:       items,
		Pagination: pagination{Total: total, Page: page, Limit: limit},
	})
}

// BadRequest writes a 400 validation error.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
		Code:    string(domain.CodeValidation),
		Message: message,
	}})
}

// Error maps a domain error to its HTTP status and writes the error body.
// Non-domain errors become opaque 500s.
func Error(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		c.JSON(http.StatusInternalServerError, errorBody{Error: errorDetail{
			Code:    "INTERNAL",
			Message: "internal server error",
		}})
		return
	}

	c.JSON(statusFor(de.Code), errorBody{Error: errorDetail{
		Code:    string(de.Code),
		Message: de.Message,
	}})
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation, domain.CodeInvalidInterval:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeSlotConflict, domain.CodeInvalidTransition, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeSpaceInactive, domain.CodeDeadlinePassed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
