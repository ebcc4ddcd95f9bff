package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/feedback"
	"github.com/shelfwise/shelfwise/internal/ledger"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 response. The actual
// error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, logger *zap.Logger, err error, context string) {
	logger.Error("internal error", zap.String("context", context), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Domain Error Mapping ---

var validationErrors = []error{
	ledger.ErrInvalidDays,
	feedback.ErrInvalidRating,
	feedback.ErrInvalidContent,
	auth.ErrNameRequired,
	auth.ErrUsernameInvalid,
	auth.ErrEmailInvalid,
	auth.ErrPasswordTooShort,
	auth.ErrPasswordTooLong,
}

var rejectionErrors = []error{
	ledger.ErrQuotaExceeded,
	ledger.ErrAlreadyRequested,
	ledger.ErrAlreadyIssued,
	ledger.ErrNotPending,
	ledger.ErrAlreadyReturned,
	feedback.ErrNotBorrowed,
	feedback.ErrDuplicateFeedback,
	auth.ErrUserExists,
}

// respondDomainError translates service errors into HTTP status codes:
// validation failures are 400, permission failures 403, missing records 404,
// state rejections 409 and transient write conflicts 503.
func respondDomainError(c *gin.Context, logger *zap.Logger, err error, context string) {
	switch {
	case matchesAny(err, validationErrors):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrForbidden) ||
		errors.Is(err, feedback.ErrForbidden) ||
		errors.Is(err, auth.ErrForbidden):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrNotFound) ||
		errors.Is(err, feedback.ErrNotFound) ||
		errors.Is(err, auth.ErrUserNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case matchesAny(err, rejectionErrors):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		respondError(c, http.StatusServiceUnavailable, err.Error())
	default:
		respondInternalError(c, logger, err, context)
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL
// parameters. Responds with a 400 error and returns false when invalid.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}
