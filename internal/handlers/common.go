package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lucasfalb/aijarvis-system/internal/middleware"
	"github.com/lucasfalb/aijarvis-system/internal/services"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
	"github.com/lucasfalb/aijarvis-system/pkg/response"
)

const internalError = "Internal Server Error"

var errorStatus = []struct {
	kind   error
	status int
}{
	{services.ErrValidation, http.StatusBadRequest},
	{services.ErrPermission, http.StatusForbidden},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrConflict, http.StatusConflict},
	{services.ErrInvariant, http.StatusConflict},
	{services.ErrDelivery, http.StatusBadGateway},
}

// toAppError maps a service error onto its HTTP rendering. Unknown
// errors are logged and hidden behind a generic 500.
func toAppError(c *gin.Context, err error) *response.AppError {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		for _, e := range errorStatus {
			if errors.Is(err, e.kind) {
				return &response.AppError{HTTPStatus: e.status, Message: svcErr.Message}
			}
		}
	}

	logger.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	return response.NewServerError(internalError)
}

func fail(c *gin.Context, err error) {
	response.Error(c, toAppError(c, err))
}

func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		ID:    middleware.GetUserID(c),
		Email: middleware.GetEmail(c),
	}
}

func parseID(c *gin.Context, name, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+what+" id")
		return 0, false
	}
	return uint(id), true
}
