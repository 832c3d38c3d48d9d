package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/application/services/demand"
	"github.com/vsinha/mrp-aps/pkg/application/services/planning"
	"github.com/vsinha/mrp-aps/pkg/application/services/whatif"
	"github.com/vsinha/mrp-aps/pkg/domain/entities"
	"github.com/vsinha/mrp-aps/pkg/domain/repositories"
)

// apiError pairs a response body with its status code
type apiError struct {
	status int
	body   errorResponse
}

func newAPIError(status int, code, message string) apiError {
	return apiError{status: status, body: errorResponse{Code: code, Message: message}}
}

func badRequest(err error) apiError {
	return newAPIError(http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}

// mapError translates engine errors into HTTP responses
func mapError(err error) apiError {
	switch {
	case errors.Is(err, demand.ErrNoDemandSources), errors.Is(err, entities.ErrInvalidHorizon):
		return newAPIError(http.StatusBadRequest, "INVALID_RUN_REQUEST", err.Error())
	case errors.Is(err, whatif.ErrInvalidDelta):
		return newAPIError(http.StatusBadRequest, "INVALID_SCENARIO_DELTA", err.Error())
	case errors.Is(err, planning.ErrRunNotFound):
		return newAPIError(http.StatusNotFound, "RUN_NOT_FOUND", err.Error())
	case errors.Is(err, whatif.ErrScenarioNotFound):
		return newAPIError(http.StatusNotFound, "SCENARIO_NOT_FOUND", err.Error())
	case errors.Is(err, planning.ErrRunNotActive):
		return newAPIError(http.StatusConflict, "RUN_NOT_ACTIVE", err.Error())
	case errors.Is(err, whatif.ErrBaselineNotPlannable):
		return newAPIError(http.StatusConflict, "BASELINE_NOT_PLANNABLE", err.Error())
	case errors.Is(err, repositories.ErrRunFrozen):
		return newAPIError(http.StatusConflict, "RUN_FROZEN", err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

func abortWithError(c *gin.Context, err error) {
	apiErr := mapError(err)
	if apiErr.status >= http.StatusInternalServerError {
		RequestLogger(c).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(apiErr.status, apiErr.body)
}

func abortWithAPIError(c *gin.Context, apiErr apiError) {
	c.AbortWithStatusJSON(apiErr.status, apiErr.body)
}
