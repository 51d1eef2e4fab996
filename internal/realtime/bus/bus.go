package bus

import (
	"context"

	"github.com/yungbote/replygen-backend/internal/realtime"
)

// Bus relays SSE messages between API instances so a reply generated by a
// worker on one node reaches subscribers connected to another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
