package get_next_ai_message

import (
	"context"

	chatmod "github.com/yungbote/replygen-backend/internal/modules/chat"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/services"
)

// Generator is the slice of the chat module this job drives.
type Generator interface {
	GenerateReply(ctx context.Context, in chatmod.GenerateInput) (chatmod.Outcome, error)
}

type Pipeline struct {
	log *logger.Logger
	gen Generator
}

func New(baseLog *logger.Logger, gen Generator) *Pipeline {
	return &Pipeline{
		log: baseLog.With("job", services.JobTypeGetNextAIMessage),
		gen: gen,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeGetNextAIMessage }
