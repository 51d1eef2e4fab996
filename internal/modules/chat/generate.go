package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/data/repos"
	types "github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/llm"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/services"
)

type GenerateInput struct {
	MessageID   uuid.UUID
	AssistantID uuid.UUID
}

type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeHandledFailure Outcome = "handled_failure"
	// OutcomeDeferred accompanies a retryable error; nothing was finalized.
	OutcomeDeferred Outcome = "deferred"
	OutcomeFailed   Outcome = "failed"
)

// GenerateReply produces the content of an empty assistant message by
// streaming from the backend the assistant's model maps to.
//
// Nil error outcomes are terminal: the message was skipped (already populated
// or cancelled) or finalized exactly once with text, a cancellation, or a
// user-facing failure explanation. Errors matching IsRetryable left the
// message claimable; ErrUnclassified and ErrFinalize are terminal failures.
func (u Usecases) GenerateReply(ctx context.Context, in GenerateInput) (out Outcome, err error) {
	ctx, span := u.deps.Tracer.Start(ctx, "chat.generate_reply", trace.WithAttributes(
		attribute.String("message.id", in.MessageID.String()),
		attribute.String("assistant.id", in.AssistantID.String()),
	))
	defer func() {
		span.SetAttributes(attribute.String("generate.outcome", string(out)))
		if err != nil && !IsRetryable(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generate reply failed")
		}
		span.End()
	}()

	if in.MessageID == uuid.Nil || in.AssistantID == uuid.Nil {
		return OutcomeFailed, fmt.Errorf("missing message_id or assistant_id")
	}
	log := u.deps.Log.With("message_id", in.MessageID, "assistant_id", in.AssistantID)
	dbc := dbctx.Background(ctx)

	msg, err := u.deps.Messages.GetByID(dbc, in.MessageID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load message: %w", err)
	}
	span.SetAttributes(attribute.String("conversation.id", msg.ConversationID.String()))

	ready, err := checkReadiness(dbc, u.deps.Messages, msg)
	if err != nil {
		return OutcomeFailed, err
	}
	switch ready {
	case readySkip:
		log.Debug("reply skipped", "populated", msg.IsPopulated(), "cancelled", msg.IsCancelled())
		return OutcomeSkipped, nil
	case readyWait:
		log.Debug("reply waiting for previous message", "index", msg.Index)
		return OutcomeDeferred, ErrWaitForPrevious
	}

	asst, err := u.deps.Assistants.GetByID(dbc, in.AssistantID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load assistant: %w", err)
	}
	conv, err := u.deps.Conversations.GetByID(dbc, msg.ConversationID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load conversation: %w", err)
	}
	user, err := u.deps.Users.GetByID(dbc, conv.UserID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load user: %w", err)
	}

	claimedAt := u.now()
	claimed, err := u.deps.Messages.Claim(dbc, repos.MessageClaim{
		Message: msg,
		Now:     claimedAt,
		Lease:   u.deps.Config.ClaimLease,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("claim message: %w", err)
	}
	if !claimed {
		cur, err := u.deps.Messages.GetByID(dbc, msg.ID)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("reload message: %w", err)
		}
		if cur.IsCancelled() || cur.IsPopulated() {
			return OutcomeSkipped, nil
		}
		return OutcomeDeferred, ErrClaimConflict
	}
	msg.ProcessedAt = &claimedAt
	msg.ContentText = ""

	u.publishLatestHint(ctx, msg, log)
	u.deps.Broadcaster.Publish(ctx, msg, services.StreamHints(true, claimedAt))

	sel, err := u.deps.Backends.For(asst)
	if err != nil {
		return u.conclude(ctx, span, log, msg, user.ID, DispositionUnclassified, err)
	}
	span.SetAttributes(attribute.String("llm.backend", sel.Spec.Name), attribute.String("llm.model", asst.Model()))

	history, err := u.deps.Messages.ListHistory(dbc, msg.ConversationID, msg.Version, msg.Index)
	if err != nil {
		u.releaseClaim(ctx, msg, log)
		return OutcomeFailed, fmt.Errorf("load history: %w", err)
	}

	req := llm.Request{
		Credentials:  resolveCredentials(user, asst, sel.Spec),
		Model:        asst.Model(),
		Instructions: asst.Instructions,
		Temperature:  asst.Temperature,
		MaxTokens:    asst.MaxTokens,
		History:      historyTurns(history),
	}
	checker := newStalenessChecker(msg, u.deps.Messages, u.hints(), u.deps.Config.DurableRecheckEvery, log)
	gate := newThrottle(u.deps.Config.BroadcastThrottle, claimedAt)

	full, streamErr := sel.Backend.Stream(ctx, req, func(chunk string) error {
		msg.ContentText += chunk
		if now := u.now(); gate.Ready(now) {
			u.deps.Broadcaster.Publish(ctx, msg, services.StreamHints(true, now))
		}
		if checker.IsStale(ctx) {
			now := u.now()
			msg.CancelledAt = &now
			return errGenerationCancelled
		}
		return nil
	})

	switch {
	case errors.Is(streamErr, errGenerationCancelled):
		return u.conclude(ctx, span, log, msg, user.ID, DispositionCancelled, nil)
	case streamErr != nil && ctx.Err() != nil:
		u.releaseClaim(ctx, msg, log)
		log.Warn("reply interrupted, claim released", "error", streamErr)
		return OutcomeDeferred, fmt.Errorf("%w: %v", ErrClaimReleased, ctx.Err())
	case streamErr != nil:
		disp, text := classifyFailure(streamErr, sel.Spec)
		msg.ContentText = text
		return u.conclude(ctx, span, log, msg, user.ID, disp, streamErr)
	}

	if !msg.IsPopulated() {
		msg.ContentText = full
	}
	if !msg.IsPopulated() {
		msg.ContentText = blankResponseText
		return u.conclude(ctx, span, log, msg, user.ID, DispositionParse, nil)
	}
	return u.conclude(ctx, span, log, msg, user.ID, DispositionSuccess, nil)
}

// conclude finalizes the message and maps the disposition to the run outcome.
func (u Usecases) conclude(
	ctx context.Context,
	span trace.Span,
	log *logger.Logger,
	msg *types.Message,
	userID uuid.UUID,
	disp Disposition,
	cause error,
) (Outcome, error) {
	if disp == DispositionUnclassified {
		msg.ContentText = unexpectedProblemText
	}
	span.SetAttributes(attribute.String("generate.disposition", string(disp)))
	if err := u.finalize(ctx, msg, userID, disp); err != nil {
		log.Error("reply finalize failed", "disposition", disp, "error", err)
		return OutcomeFailed, err
	}
	log.Info("reply finalized", "disposition", disp, "chars", len(msg.ContentText))

	switch {
	case disp == DispositionSuccess:
		return OutcomeSucceeded, nil
	case disp == DispositionCancelled:
		return OutcomeCancelled, nil
	case isHandledFailure(disp):
		log.Warn("reply finalized with failure text", "disposition", disp, "error", cause)
		return OutcomeHandledFailure, nil
	default:
		log.Error("reply generation failed", "error", cause)
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrUnclassified, cause)
	}
}

// finalize publishes the closing broadcast and persists the final state in
// one transaction. It runs detached from ctx cancellation so a claimed
// message is never left half written.
func (u Usecases) finalize(ctx context.Context, msg *types.Message, userID uuid.UUID, disp Disposition) error {
	ctx = context.WithoutCancel(ctx)
	now := u.now()

	u.deps.Broadcaster.Publish(ctx, msg, services.StreamHints(false, now))

	updates := map[string]interface{}{
		"content_text": msg.ContentText,
		"processed_at": msg.ProcessedAt,
		"updated_at":   now,
	}
	if msg.CancelledAt != nil {
		updates["cancelled_at"] = *msg.CancelledAt
	}
	err := u.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := u.deps.Messages.UpdateFields(inner, msg.ID, updates); err != nil {
			return fmt.Errorf("message: %w", err)
		}
		if err := u.deps.Conversations.Touch(inner, msg.ConversationID, now); err != nil {
			return fmt.Errorf("conversation: %w", err)
		}
		if disp == DispositionCancelled {
			if err := u.deps.Users.UpdateFields(inner, userID, map[string]interface{}{
				"last_cancelled_message_id": msg.ID,
			}); err != nil {
				return fmt.Errorf("user: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFinalize, err)
	}
	return nil
}

// releaseClaim gives the message back and closes the "thinking" state
// subscribers saw when the claim was taken.
func (u Usecases) releaseClaim(ctx context.Context, msg *types.Message, log *logger.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := u.deps.Messages.ReleaseClaim(dbctx.Background(ctx), msg.ID); err != nil {
		log.Warn("release claim failed", "error", err)
	}
	msg.ProcessedAt = nil
	msg.ContentText = ""
	u.deps.Broadcaster.Publish(ctx, msg, services.StreamHints(false, u.now()))
}

// publishLatestHint records msg as the conversation's newest assistant
// message when nothing follows it in its version.
func (u Usecases) publishLatestHint(ctx context.Context, msg *types.Message, log *logger.Logger) {
	if u.deps.Coordination == nil {
		return
	}
	latest, err := u.deps.Messages.LatestForVersion(dbctx.Background(ctx), msg.ConversationID, msg.Version)
	if err != nil {
		log.Warn("latest message lookup failed", "error", err)
		return
	}
	if latest == nil || latest.ID != msg.ID {
		return
	}
	if err := u.hints().SetLatestAssistantMessage(ctx, msg.ConversationID, msg.ID); err != nil {
		log.Warn("latest assistant hint not published", "error", err)
	}
}
