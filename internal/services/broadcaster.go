package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/realtime"
)

// BroadcastHints are the presentation flags sent with every message snapshot.
type BroadcastHints struct {
	Thinking                  bool  `json:"thinking"`
	OnlyScrollDownIfWasBottom bool  `json:"only_scroll_down_if_was_bottom"`
	Streamed                  bool  `json:"streamed"`
	Timestamp                 int64 `json:"timestamp"`
}

// StreamHints are the hints used while a reply is generated.
func StreamHints(thinking bool, now time.Time) BroadcastHints {
	return BroadcastHints{
		Thinking:                  thinking,
		OnlyScrollDownIfWasBottom: true,
		Streamed:                  true,
		Timestamp:                 now.UnixMilli(),
	}
}

// MessageSnapshot is the copy of a message that goes over the wire. The
// source row keeps mutating while a reply streams, so it is never shared.
type MessageSnapshot struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	AssistantID    *uuid.UUID `json:"assistant_id,omitempty"`
	Role           string     `json:"role"`
	Version        int        `json:"version"`
	Index          int        `json:"index"`
	ContentText    string     `json:"content_text"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

type MessageUpdate struct {
	Message MessageSnapshot `json:"message"`
	BroadcastHints
}

type MessageBroadcaster interface {
	Publish(ctx context.Context, msg *chat.Message, hints BroadcastHints)
}

type messageBroadcaster struct {
	emit SSEEmitter
}

func NewMessageBroadcaster(emit SSEEmitter) MessageBroadcaster {
	return &messageBroadcaster{emit: emit}
}

func (b *messageBroadcaster) Publish(ctx context.Context, msg *chat.Message, hints BroadcastHints) {
	if b == nil || b.emit == nil || msg == nil {
		return
	}
	b.emit.Emit(ctx, realtime.SSEMessage{
		Channel: chat.ConversationChannel(msg.ConversationID),
		Event:   realtime.SSEEventChatMessageUpdated,
		Data:    MessageUpdate{Message: snapshot(msg), BroadcastHints: hints},
	})
}

func snapshot(m *chat.Message) MessageSnapshot {
	s := MessageSnapshot{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Version:        m.Version,
		Index:          m.Index,
		ContentText:    m.ContentText,
	}
	if m.AssistantID != nil {
		id := *m.AssistantID
		s.AssistantID = &id
	}
	if m.ProcessedAt != nil {
		t := *m.ProcessedAt
		s.ProcessedAt = &t
	}
	if m.CancelledAt != nil {
		t := *m.CancelledAt
		s.CancelledAt = &t
	}
	return s
}
