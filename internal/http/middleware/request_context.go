package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/replygen-backend/internal/http/response"
	"github.com/yungbote/replygen-backend/internal/platform/ctxutil"
)

// HeaderUserID carries the caller identity established by the upstream gateway.
const HeaderUserID = "X-User-ID"

var errNotAuthenticated = errors.New("not authenticated")

// AttachRequestContext copies the caller identity into the request context.
// A missing or malformed header leaves the context untouched.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw != "" {
			if userID, err := uuid.Parse(raw); err == nil {
				ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID})
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}

// RequireUser rejects requests without a resolved caller.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			response.RespondError(c, http.StatusUnauthorized, "unauthenticated", errNotAuthenticated)
			return
		}
		c.Next()
	}
}
