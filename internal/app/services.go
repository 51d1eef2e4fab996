package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/jobs/pipeline/get_next_ai_message"
	jobrt "github.com/yungbote/replygen-backend/internal/jobs/runtime"
	"github.com/yungbote/replygen-backend/internal/jobs/worker"
	"github.com/yungbote/replygen-backend/internal/llm"
	"github.com/yungbote/replygen-backend/internal/llm/anthropic"
	"github.com/yungbote/replygen-backend/internal/llm/openai"
	chatmod "github.com/yungbote/replygen-backend/internal/modules/chat"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/services"
)

type Services struct {
	Notifier     services.JobNotifier
	Broadcaster  services.MessageBroadcaster
	JobService   services.JobService
	Cancellation services.CancellationService
	Chat         chatmod.Usecases
	JobWorker    *worker.Worker
}

func wireBackends(log *logger.Logger, cfg Config) (*llm.Selector, error) {
	catalog, err := llm.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load llm catalog: %w", err)
	}
	return llm.NewSelector(catalog, map[string]llm.Backend{
		llm.DriverOpenAI: openai.New(log, openai.Config{
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.LLMTimeout,
		}),
		llm.DriverAnthropic: anthropic.New(log, anthropic.Config{
			BaseURL:   cfg.AnthropicBaseURL,
			MaxTokens: cfg.AnthropicMaxTokens,
			Timeout:   cfg.LLMTimeout,
		}),
	}), nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	notifier := services.NewJobNotifier(clients.Emitter)
	broadcaster := services.NewMessageBroadcaster(clients.Emitter)
	jobService := services.NewJobService(log, r.JobRun, r.Conversation, r.Message, r.Assistant, clients.Coordination, notifier)
	cancellation := services.NewCancellationService(db, log, r.User, r.Conversation, r.Message, clients.Coordination)

	backends, err := wireBackends(log, cfg)
	if err != nil {
		return Services{}, err
	}
	chat := chatmod.New(chatmod.UsecasesDeps{
		DB:            db,
		Log:           log,
		Users:         r.User,
		Assistants:    r.Assistant,
		Conversations: r.Conversation,
		Messages:      r.Message,
		Coordination:  clients.Coordination,
		Broadcaster:   broadcaster,
		Backends:      backends,
		Config:        cfg.Chat,
	})

	registry := jobrt.NewRegistry()
	if err := registry.Register(get_next_ai_message.New(log, chat)); err != nil {
		return Services{}, fmt.Errorf("register job handler: %w", err)
	}
	jobWorker := worker.NewWorker(log, r.JobRun, registry, notifier, cfg.Worker)

	return Services{
		Notifier:     notifier,
		Broadcaster:  broadcaster,
		JobService:   jobService,
		Cancellation: cancellation,
		Chat:         chat,
		JobWorker:    jobWorker,
	}, nil
}
