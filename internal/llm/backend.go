package llm

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior message of the conversation, oldest first.
type Turn struct {
	Role string
	Text string
}

type Credentials struct {
	APIKey  string
	BaseURL string
}

type Request struct {
	Credentials  Credentials
	Model        string
	Instructions string
	Temperature  *float64
	MaxTokens    int
	History      []Turn
}

// ChunkFunc receives text deltas in arrival order. A non-nil return stops the
// stream; Backend.Stream then returns that same error value.
type ChunkFunc func(chunk string) error

// Backend streams one chat completion. The returned string is the full text
// the backend assembled, used when no chunk carried content.
type Backend interface {
	Name() string
	Stream(ctx context.Context, req Request, onChunk ChunkFunc) (string, error)
}
