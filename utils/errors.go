package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"document-search-platform/models"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithDomainError maps a tagged pipeline/search error onto an HTTP
// status: caller contract violations are 400, backing-store trouble is 502,
// everything else 500.
func RespondWithDomainError(c *gin.Context, err error) {
	switch models.KindOf(err) {
	case models.KindInvalidArgument:
		RespondWithError(c, http.StatusBadRequest, "invalid_argument", err.Error(), nil)
	case models.KindTransient, models.KindSearch:
		RespondWithError(c, http.StatusBadGateway, "store_unavailable", err.Error(), nil)
	case models.KindCredential:
		RespondWithError(c, http.StatusBadGateway, "store_credentials", "backing store rejected credentials", nil)
	case models.KindExtraction:
		RespondWithError(c, http.StatusUnprocessableEntity, "extraction_failed", err.Error(), nil)
	default:
		RespondWithInternalError(c, err.Error(), nil)
	}
}
