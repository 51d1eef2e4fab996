package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/replygen-backend/internal/http/response"
	"github.com/yungbote/replygen-backend/internal/platform/ctxutil"
	"github.com/yungbote/replygen-backend/internal/services"
)

func requestUserID(c *gin.Context) uuid.UUID {
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		return rd.UserID
	}
	return uuid.Nil
}

func parseIDParam(c *gin.Context, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service sentinels onto HTTP statuses.
func respondServiceError(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrInvalid):
		response.RespondError(c, http.StatusBadRequest, code, err)
	default:
		response.RespondError(c, http.StatusInternalServerError, code, err)
	}
}
