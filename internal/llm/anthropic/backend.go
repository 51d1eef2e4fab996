package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/replygen-backend/internal/llm"
	"github.com/yungbote/replygen-backend/internal/platform/ctxutil"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

const (
	Name = "Anthropic"

	defaultMaxTokens = 4096
)

type Config struct {
	// BaseURL is used when the request carries none.
	BaseURL string
	// MaxTokens applies when the assistant sets none; the messages API requires one.
	MaxTokens int
	Timeout   time.Duration
}

type Backend struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) *Backend {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Backend{
		log:  log.With("backend", Name),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Stream(ctx context.Context, req llm.Request, onChunk llm.ChunkFunc) (string, error) {
	key := strings.TrimSpace(req.Credentials.APIKey)
	if key == "" {
		return "", llm.Errorf(llm.KindUnconfiguredCredentials, Name, "missing Anthropic API key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHTTPClient(b.http),
		// Retries belong to the job scheduler.
		option.WithMaxRetries(0),
	}
	if base := firstNonEmpty(req.Credentials.BaseURL, b.cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := sdk.NewClient(opts...)

	stream := client.Messages.NewStreaming(ctxutil.Default(ctx), b.buildParams(req))
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		ev, ok := stream.Current().AsAny().(sdk.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		delta, ok := ev.Delta.AsAny().(sdk.TextDelta)
		if !ok || delta.Text == "" {
			continue
		}
		full.WriteString(delta.Text)
		if onChunk != nil {
			if err := onChunk(delta.Text); err != nil {
				return full.String(), err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), classify(err)
	}
	return full.String(), nil
}

func (b *Backend) buildParams(req llm.Request) sdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.cfg.MaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  toMessages(req.History),
	}
	if s := strings.TrimSpace(req.Instructions); s != "" {
		params.System = []sdk.TextBlockParam{{Text: s}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

// toMessages drops blank turns and merges consecutive turns from the same
// role; the messages API wants strictly alternating roles starting with user.
func toMessages(history []llm.Turn) []sdk.MessageParam {
	type turn struct {
		role string
		text string
	}
	merged := make([]turn, 0, len(history))
	for _, t := range history {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		role := llm.RoleUser
		if t.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		}
		if len(merged) == 0 && role == llm.RoleAssistant {
			continue
		}
		if n := len(merged); n > 0 && merged[n-1].role == role {
			merged[n-1].text += "\n\n" + text
			continue
		}
		merged = append(merged, turn{role: role, text: text})
	}

	out := make([]sdk.MessageParam, 0, len(merged))
	for _, t := range merged {
		if t.role == llm.RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(t.text)))
			continue
		}
		out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(t.text)))
	}
	return out
}

type errorEnvelope struct {
	Error struct {
		Type string `json:"type"`
	} `json:"error"`
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		var env errorEnvelope
		_ = json.Unmarshal([]byte(apiErr.RawJSON()), &env)
		return llm.NewError(llm.KindForStatus(apiErr.StatusCode, env.Error.Type), Name, err)
	}
	if llm.IsTransport(err) {
		return llm.NewError(llm.KindTransport, Name, err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return llm.NewError(llm.KindParse, Name, err)
	}
	// An error event inside a 200 stream carries no status, only its type.
	return llm.NewError(kindForStreamError(err.Error()), Name, err)
}

func kindForStreamError(msg string) llm.Kind {
	switch {
	case strings.Contains(msg, "overloaded_error"), strings.Contains(msg, "api_error"):
		return llm.KindTransport
	case strings.Contains(msg, "rate_limit_error"):
		return llm.KindRateLimited
	case strings.Contains(msg, "authentication_error"), strings.Contains(msg, "permission_error"):
		return llm.KindUnconfiguredCredentials
	default:
		return llm.KindOther
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
