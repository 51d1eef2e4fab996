package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/replygen-backend/internal/llm"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

const Name = "OpenAI"

type Config struct {
	// BaseURL is used when the request carries none.
	BaseURL string
	Timeout time.Duration
}

type Backend struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) *Backend {
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
		return "", llm.Errorf(llm.KindUnconfiguredCredentials, Name, "missing OpenAI API key")
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

	stream := client.Chat.Completions.NewStreaming(ctx, buildParams(req))
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			delta := choice.Delta.Content
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if onChunk != nil {
				if err := onChunk(delta); err != nil {
					return full.String(), err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), classify(err)
	}
	return full.String(), nil
}

func buildParams(req llm.Request) sdk.ChatCompletionNewParams {
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	if s := strings.TrimSpace(req.Instructions); s != "" {
		msgs = append(msgs, sdk.SystemMessage(s))
	}
	for _, t := range req.History {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		switch t.Role {
		case llm.RoleAssistant:
			msgs = append(msgs, sdk.AssistantMessage(t.Text))
		default:
			msgs = append(msgs, sdk.UserMessage(t.Text))
		}
	}
	params := sdk.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(req.MaxTokens))
	}
	return params
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = apiErr.Type
		}
		return llm.NewError(llm.KindForStatus(apiErr.StatusCode, code), Name, err)
	}
	if llm.IsTransport(err) {
		return llm.NewError(llm.KindTransport, Name, err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return llm.NewError(llm.KindParse, Name, err)
	}
	return llm.NewError(llm.KindOther, Name, err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
