package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/replygen-backend/internal/http/response"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := parseIDParam(c, "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetByIDForUser(dbctx.Background(c.Request.Context()), requestUserID(c), jobID)
	if err != nil {
		respondServiceError(c, "job_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
