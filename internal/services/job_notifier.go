package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/replygen-backend/internal/domain/jobs"
	"github.com/yungbote/replygen-backend/internal/realtime"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *jobs.JobRun)
	JobFailed(userID uuid.UUID, job *jobs.JobRun, errorMessage string)
	JobDone(userID uuid.UUID, job *jobs.JobRun)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *jobs.JobRun) {
	n.send(userID, realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *jobs.JobRun, errorMessage string) {
	n.send(userID, realtime.SSEEventJobFailed, map[string]any{
		"job_id":    job.ID,
		"job_type":  job.JobType,
		"entity_id": job.EntityID,
		"error":     errorMessage,
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *jobs.JobRun) {
	n.send(userID, realtime.SSEEventJobDone, map[string]any{
		"job_id":    job.ID,
		"job_type":  job.JobType,
		"entity_id": job.EntityID,
		"stage":     job.Stage,
	})
}

func (n *jobNotifier) send(userID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID.String()),
		Event:   event,
		Data:    data,
	})
}
