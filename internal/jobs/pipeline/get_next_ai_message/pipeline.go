package get_next_ai_message

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/replygen-backend/internal/jobs/runtime"
	chatmod "github.com/yungbote/replygen-backend/internal/modules/chat"
)

type result struct {
	MessageID uuid.UUID       `json:"message_id"`
	Outcome   chatmod.Outcome `json:"outcome"`
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if err := jc.PayloadErr(); err != nil {
		jc.Fail("validate", err)
		return nil
	}
	messageID, ok := jc.PayloadUUID("message_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing message_id"))
		return nil
	}
	assistantID, ok := jc.PayloadUUID("assistant_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing assistant_id"))
		return nil
	}

	out, err := p.gen.GenerateReply(jc.Ctx, chatmod.GenerateInput{MessageID: messageID, AssistantID: assistantID})
	switch {
	case err == nil:
		jc.Succeed(string(out), result{MessageID: messageID, Outcome: out})
		return nil
	case chatmod.IsRetryable(err):
		p.log.Debug("reply generation deferred", "message_id", messageID, "reason", err)
		return jobrt.Retry(err)
	case errors.Is(err, chatmod.ErrUnclassified), errors.Is(err, chatmod.ErrFinalize):
		p.log.Error("reply generation failed", "message_id", messageID, "error", err)
		jc.Fail("generate", err)
		return nil
	default:
		// Lookup errors: transient database failures are retried by the worker.
		return err
	}
}
