package realtime

type SSEEvent string

const (
	// SSEEventChatMessageUpdated carries the full current text of a reply
	// plus rendering hints. Clients replace, never append.
	SSEEventChatMessageUpdated SSEEvent = "ChatMessageUpdated"

	SSEEventJobCreated SSEEvent = "JobCreated"
	SSEEventJobFailed  SSEEvent = "JobFailed"
	SSEEventJobDone    SSEEvent = "JobDone"
)

// UserChannel is the per-user channel job lifecycle events go to.
func UserChannel(userID string) string {
	return "user:" + userID
}

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
