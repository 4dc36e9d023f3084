package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/dto"
)

const companyIDKey = "company_id"

// TenantMiddleware resolves the pre-validated tenant boundary. The core never
// resolves tenancy itself: a missing or malformed company id is a hard
// failure before any handler runs.
func TenantMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := ctx.GetHeader("X-Company-ID")
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Missing X-Company-ID header"})
			return
		}
		val, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || val == 0 {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid X-Company-ID header"})
			return
		}
		ctx.Set(companyIDKey, uint(val))
		ctx.Next()
	}
}

// CompanyID returns the tenant resolved by TenantMiddleware.
func CompanyID(ctx *gin.Context) uint {
	return ctx.GetUint(companyIDKey)
}

// UintParam parses a path parameter as an id.
func UintParam(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

// UintQuery parses a required query parameter as an id.
func UintQuery(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Query(name), 10, 32)
	if err != nil || val == 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Missing or invalid " + name + " query parameter"})
		return 0, false
	}
	return uint(val), true
}

// RespondError maps the error taxonomy to HTTP statuses. Denial reasons stay
// specific in the message so trainees learn why a test is unavailable.
func RespondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidSubmission):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrAccessDenied), errors.Is(err, apperr.ErrAttemptsExhausted):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrConcurrentModification):
		status = http.StatusConflict
	}
	ctx.JSON(status, dto.ErrorResponse{Message: err.Error()})
}
