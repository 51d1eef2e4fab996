package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/replygen-backend/internal/http/response"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/services"
)

type MessageHandler struct {
	jobs   services.JobService
	cancel services.CancellationService
}

func NewMessageHandler(jobs services.JobService, cancel services.CancellationService) *MessageHandler {
	return &MessageHandler{jobs: jobs, cancel: cancel}
}

type generateRequest struct {
	AssistantID uuid.UUID `json:"assistant_id" binding:"required"`
}

// POST /api/messages/:id/generate
func (h *MessageHandler) Generate(c *gin.Context) {
	messageID, ok := parseIDParam(c, "invalid_message_id")
	if !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	job, err := h.jobs.EnqueueNextAIMessage(dbctx.Background(c.Request.Context()), requestUserID(c), messageID, req.AssistantID)
	if err != nil {
		respondServiceError(c, "enqueue_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}

// POST /api/messages/:id/cancel
func (h *MessageHandler) Cancel(c *gin.Context) {
	messageID, ok := parseIDParam(c, "invalid_message_id")
	if !ok {
		return
	}
	if _, err := h.cancel.CancelMessage(dbctx.Background(c.Request.Context()), requestUserID(c), messageID); err != nil {
		respondServiceError(c, "cancel_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
