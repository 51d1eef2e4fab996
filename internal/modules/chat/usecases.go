package chat

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/clients/redis"
	"github.com/yungbote/replygen-backend/internal/data/repos"
	"github.com/yungbote/replygen-backend/internal/llm"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/services"
)

type Config struct {
	// Minimum spacing between intermediate "thinking" broadcasts.
	BroadcastThrottle time.Duration
	// Every Nth staleness check re-reads the durable store; the calls in
	// between only consult coordination hints. The first check is always durable.
	DurableRecheckEvery int
	// Claims older than this are treated as abandoned.
	ClaimLease time.Duration
}

func DefaultConfig() Config {
	return Config{
		BroadcastThrottle:   100 * time.Millisecond,
		DurableRecheckEvery: 10,
		ClaimLease:          10 * time.Minute,
	}
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Users         repos.UserRepo
	Assistants    repos.AssistantRepo
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo

	Coordination redis.CoordinationStore
	Broadcaster  services.MessageBroadcaster
	Backends     *llm.Selector

	Config Config
	// Optional: defaults to time.Now.
	Now func() time.Time
	// Optional: defaults to the global tracer provider.
	Tracer trace.Tracer
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	def := DefaultConfig()
	if deps.Config.BroadcastThrottle <= 0 {
		deps.Config.BroadcastThrottle = def.BroadcastThrottle
	}
	if deps.Config.DurableRecheckEvery <= 0 {
		deps.Config.DurableRecheckEvery = def.DurableRecheckEvery
	}
	if deps.Config.ClaimLease <= 0 {
		deps.Config.ClaimLease = def.ClaimLease
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("replygen/modules/chat")
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "chat")
	return Usecases{deps: deps}
}

func (u Usecases) now() time.Time { return u.deps.Now().UTC() }

func (u Usecases) hints() redis.Hints { return redis.Hints{Store: u.deps.Coordination} }
