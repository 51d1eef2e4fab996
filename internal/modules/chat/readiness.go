package chat

import (
	"errors"
	"fmt"

	"github.com/yungbote/replygen-backend/internal/data/repos"
	types "github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
)

var (
	// ErrWaitForPrevious means the message before the target is still being
	// generated. Nothing was written; the run should be retried later.
	ErrWaitForPrevious = errors.New("previous message is still generating")
	// ErrClaimConflict means another run holds the message. Retryable.
	ErrClaimConflict = errors.New("message is claimed by another run")
	// ErrClaimReleased means the run was interrupted mid-stream and gave the
	// message back. Retryable.
	ErrClaimReleased = errors.New("generation interrupted, claim released")
	// ErrUnclassified is returned after the message was finalized with the
	// generic failure text. Not retryable.
	ErrUnclassified = errors.New("unclassified generation failure")
	// ErrFinalize wraps persistence failures of the final state. Not retryable.
	ErrFinalize = errors.New("finalize reply")
)

// IsRetryable reports whether a GenerateReply error should be scheduled again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrWaitForPrevious) ||
		errors.Is(err, ErrClaimConflict) ||
		errors.Is(err, ErrClaimReleased)
}

type readiness int

const (
	readyProceed readiness = iota
	readySkip
	readyWait
)

// checkReadiness reads the target and its predecessor without writing.
// Only an assistant predecessor can hold up the target; a cancelled one never
// gets text, so it does not either.
func checkReadiness(dbc dbctx.Context, messages repos.MessageRepo, msg *types.Message) (readiness, error) {
	if msg.IsCancelled() || msg.IsPopulated() {
		return readySkip, nil
	}
	prev, err := messages.GetAssistantByIndex(dbc, msg.ConversationID, msg.Version, msg.Index-1)
	if err != nil {
		return readyProceed, fmt.Errorf("load previous message: %w", err)
	}
	if prev != nil && prev.IsProcessed() && !prev.IsPopulated() && !prev.IsCancelled() {
		return readyWait, nil
	}
	return readyProceed, nil
}
