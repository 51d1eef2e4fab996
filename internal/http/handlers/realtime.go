package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/replygen-backend/internal/data/repos"
	"github.com/yungbote/replygen-backend/internal/data/repos/dberr"
	"github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/http/response"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/realtime"
	"github.com/yungbote/replygen-backend/internal/services"
)

type RealtimeHandler struct {
	Log           *logger.Logger
	Hub           *realtime.SSEHub
	Conversations repos.ConversationRepo
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, conversations repos.ConversationRepo) *RealtimeHandler {
	return &RealtimeHandler{
		Log:           log.With("handler", "RealtimeHandler"),
		Hub:           hub,
		Conversations: conversations,
	}
}

// GET /api/conversations/:id/stream
//
// The stream carries the conversation's reply updates plus the caller's job
// lifecycle events. Each update holds the full reply text, so a client that
// reconnects only needs the next update to catch up.
func (h *RealtimeHandler) StreamConversation(c *gin.Context) {
	convID, ok := parseIDParam(c, "invalid_conversation_id")
	if !ok {
		return
	}
	userID := requestUserID(c)
	conv, err := h.Conversations.GetByID(dbctx.Background(c.Request.Context()), convID)
	if err != nil {
		if dberr.IsNotFound(err) {
			respondServiceError(c, "not_found", services.ErrNotFound)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "conversation_lookup_failed", err)
		return
	}
	if conv.UserID != userID {
		respondServiceError(c, "not_found", services.ErrNotFound)
		return
	}

	client := h.Hub.NewSSEClient(userID)
	h.Hub.AddChannel(client, chat.ConversationChannel(conv.ID))
	h.Hub.AddChannel(client, realtime.UserChannel(userID.String()))
	h.Log.Info("SSE stream open", "user_id", userID, "conversation_id", conv.ID, "client_id", client.ID)

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.Hub.CloseClient(client)
	h.Log.Info("SSE stream closed", "conversation_id", conv.ID, "client_id", client.ID)
}
