package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/replygen-backend/internal/clients/redis"
	"github.com/yungbote/replygen-backend/internal/data/repos"
	"github.com/yungbote/replygen-backend/internal/data/repos/dberr"
	"github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/domain/jobs"
	"github.com/yungbote/replygen-backend/internal/platform/ctxutil"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

const (
	JobTypeGetNextAIMessage = "get_next_ai_message"
	EntityTypeMessage       = "message"
)

// NextAIMessagePayload is the payload of a get_next_ai_message job.
type NextAIMessagePayload struct {
	MessageID   uuid.UUID `json:"message_id"`
	AssistantID uuid.UUID `json:"assistant_id"`
	TraceID     string    `json:"trace_id,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload any) (*jobs.JobRun, error)
	EnqueueNextAIMessage(dbc dbctx.Context, userID, messageID, assistantID uuid.UUID) (*jobs.JobRun, error)
	GetByIDForUser(dbc dbctx.Context, userID, jobID uuid.UUID) (*jobs.JobRun, error)
}

type jobService struct {
	log           *logger.Logger
	repo          repos.JobRunRepo
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	assistants    repos.AssistantRepo
	hints         redis.Hints
	notify        JobNotifier
}

func NewJobService(
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	conversations repos.ConversationRepo,
	messages repos.MessageRepo,
	assistants repos.AssistantRepo,
	store redis.CoordinationStore,
	notify JobNotifier,
) JobService {
	return &jobService{
		log:           baseLog.With("service", "JobService"),
		repo:          repo,
		conversations: conversations,
		messages:      messages,
		assistants:    assistants,
		hints:         redis.Hints{Store: store},
		notify:        notify,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload any) (*jobs.JobRun, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("missing owner_user_id")
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	payloadJSON := datatypes.JSON([]byte(`{}`))
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		payloadJSON = datatypes.JSON(b)
	}
	now := time.Now().UTC()
	job := &jobs.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      jobs.StatusQueued,
		Stage:       jobs.StatusQueued,
		Payload:     payloadJSON,
		Result:      datatypes.JSON([]byte(`{}`)),
		NextRunAt:   &now,
	}
	if _, err := s.repo.Create(dbc, []*jobs.JobRun{job}); err != nil {
		return nil, err
	}
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}
	return job, nil
}

// EnqueueNextAIMessage schedules generation of an existing, empty assistant
// message. When the message is the newest of its version it also becomes the
// conversation's latest-assistant hint, which supersedes older runs.
func (s *jobService) EnqueueNextAIMessage(dbc dbctx.Context, userID, messageID, assistantID uuid.UUID) (*jobs.JobRun, error) {
	if userID == uuid.Nil || messageID == uuid.Nil || assistantID == uuid.Nil {
		return nil, ErrInvalid
	}
	msg, err := s.messages.GetByID(dbc, messageID)
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	conv, err := s.conversations.GetByID(dbc, msg.ConversationID)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrNotFound
	}
	if msg.Role != chat.RoleAssistant {
		return nil, fmt.Errorf("%w: message %s is not an assistant message", ErrInvalid, msg.ID)
	}
	asst, err := s.assistants.GetByID(dbc, assistantID)
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if asst.UserID != userID {
		return nil, ErrNotFound
	}

	// A second request while a run is pending returns that run.
	if existing, err := s.activeJobFor(dbc, msg.ID); err != nil {
		return nil, err
	} else if existing != nil {
		s.log.Info("reply generation already pending", "job_id", existing.ID, "message_id", msg.ID)
		return existing, nil
	}

	payload := NextAIMessagePayload{MessageID: msg.ID, AssistantID: asst.ID}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		payload.TraceID = td.TraceID
		payload.RequestID = td.RequestID
	}
	entityID := msg.ID
	job, err := s.Enqueue(dbc, userID, JobTypeGetNextAIMessage, EntityTypeMessage, &entityID, payload)
	if err != nil {
		return nil, err
	}

	latest, err := s.messages.LatestForVersion(dbc, msg.ConversationID, msg.Version)
	if err != nil {
		s.log.Warn("latest message lookup failed", "message_id", msg.ID, "error", err)
	} else if latest != nil && latest.ID == msg.ID {
		if err := s.hints.SetLatestAssistantMessage(dbc.Ctx, msg.ConversationID, msg.ID); err != nil {
			s.log.Warn("latest assistant hint not published", "conversation_id", msg.ConversationID, "error", err)
		}
	}

	s.log.Info("reply generation enqueued", "job_id", job.ID, "message_id", msg.ID, "assistant_id", asst.ID)
	return job, nil
}

func (s *jobService) activeJobFor(dbc dbctx.Context, messageID uuid.UUID) (*jobs.JobRun, error) {
	ok, err := s.repo.ExistsRunnableForEntity(dbc, EntityTypeMessage, messageID, JobTypeGetNextAIMessage)
	if err != nil || !ok {
		return nil, err
	}
	return s.repo.GetLatestByEntity(dbc, EntityTypeMessage, messageID, JobTypeGetNextAIMessage)
}

func (s *jobService) GetByIDForUser(dbc dbctx.Context, userID, jobID uuid.UUID) (*jobs.JobRun, error) {
	rows, err := s.repo.GetByIDs(dbc, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].OwnerUserID != userID {
		return nil, ErrNotFound
	}
	return rows[0], nil
}
