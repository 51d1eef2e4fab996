package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/replygen-backend/internal/llm"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

func deltaEvent(text string) string {
	return fmt.Sprintf("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", text)
}

func newRequest(baseURL string) llm.Request {
	return llm.Request{
		Credentials:  llm.Credentials{APIKey: "ak-test", BaseURL: baseURL},
		Model:        "claude-3-5-sonnet-20240620",
		Instructions: "Be brief.",
		History: []llm.Turn{
			{Role: llm.RoleUser, Text: "Hi"},
			{Role: llm.RoleAssistant, Text: "Hello!"},
			{Role: llm.RoleUser, Text: "How are you?"},
		},
	}
}

type sentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sentRequest struct {
	Model     string      `json:"model"`
	MaxTokens int         `json:"max_tokens"`
	Stream    bool        `json:"stream"`
	System    []sentBlock `json:"system"`
	Messages  []struct {
		Role    string      `json:"role"`
		Content []sentBlock `json:"content"`
	} `json:"messages"`
}

func TestStreamParsesTextDeltas(t *testing.T) {
	type captured struct {
		req     sentRequest
		headers http.Header
	}
	seen := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		var c captured
		c.headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&c.req)
		seen <- c
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"type\":\"message\",\"role\":\"assistant\",\"content\":[]}}\n\n")
		fmt.Fprint(w, "event: ping\ndata: {\"type\":\"ping\"}\n\n")
		fmt.Fprint(w, deltaEvent("Hello"))
		fmt.Fprint(w, deltaEvent(" world"))
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
	defer srv.Close()

	var chunks []string
	text, err := New(logger.Nop(), Config{}).Stream(context.Background(), newRequest(srv.URL), func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if text != "Hello world" || len(chunks) != 2 {
		t.Fatalf("text=%q chunks=%v", text, chunks)
	}
	c := <-seen
	got, headers := c.req, c.headers
	if headers.Get("x-api-key") != "ak-test" || headers.Get("anthropic-version") == "" {
		t.Fatalf("missing auth headers: %v", headers)
	}
	if !got.Stream || got.MaxTokens != defaultMaxTokens || len(got.Messages) != 3 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.System) != 1 || got.System[0].Text != "Be brief." {
		t.Fatalf("system=%+v", got.System)
	}
	if m := got.Messages[1]; m.Role != "assistant" || len(m.Content) != 1 || m.Content[0].Text != "Hello!" {
		t.Fatalf("second message=%+v", m)
	}
}

func TestStreamUsesAssistantMaxTokens(t *testing.T) {
	seen := make(chan sentRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		seen <- req
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, deltaEvent("ok"))
	}))
	defer srv.Close()

	req := newRequest(srv.URL)
	req.MaxTokens = 256
	if _, err := New(logger.Nop(), Config{MaxTokens: 1000}).Stream(context.Background(), req, nil); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got := <-seen; got.MaxTokens != 256 || got.Model != req.Model {
		t.Fatalf("request=%+v", got)
	}
}

func TestStreamMissingKey(t *testing.T) {
	req := newRequest("http://127.0.0.1:1")
	req.Credentials.APIKey = " "
	_, err := New(logger.Nop(), Config{}).Stream(context.Background(), req, nil)
	if llm.KindOf(err) != llm.KindUnconfiguredCredentials {
		t.Fatalf("err=%v", err)
	}
}

func TestStreamStopsWhenCallbackErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, deltaEvent("a"))
		fmt.Fprint(w, deltaEvent("b"))
	}))
	defer srv.Close()

	stop := errors.New("stop")
	calls := 0
	text, err := New(logger.Nop(), Config{}).Stream(context.Background(), newRequest(srv.URL), func(string) error {
		calls++
		return stop
	})
	if err != stop {
		t.Fatalf("err=%v, want callback error unchanged", err)
	}
	if calls != 1 || text != "a" {
		t.Fatalf("calls=%d text=%q", calls, text)
	}
}

func TestStreamClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   llm.Kind
	}{
		{"rate_limited", 429, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, llm.KindRateLimited},
		{"billing", 400, `{"type":"error","error":{"type":"invalid_request_error","message":"credit balance too low"}}`, llm.KindOther},
		{"auth", 401, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, llm.KindUnconfiguredCredentials},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, llm.KindTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			_, err := New(logger.Nop(), Config{}).Stream(context.Background(), newRequest(srv.URL), nil)
			if got := llm.KindOf(err); got != tc.want {
				t.Fatalf("KindOf=%q, want %q (err=%v)", got, tc.want, err)
			}
		})
	}
}

func TestStreamErrorEventMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, deltaEvent("partial"))
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	}))
	defer srv.Close()

	text, err := New(logger.Nop(), Config{}).Stream(context.Background(), newRequest(srv.URL), nil)
	if llm.KindOf(err) != llm.KindTransport {
		t.Fatalf("err=%v", err)
	}
	if text != "partial" {
		t.Fatalf("text=%q", text)
	}
}

func TestStreamMalformedEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content_block_delta\ndata: {not json\n\n")
	}))
	defer srv.Close()

	_, err := New(logger.Nop(), Config{}).Stream(context.Background(), newRequest(srv.URL), nil)
	if llm.KindOf(err) != llm.KindParse {
		t.Fatalf("err=%v", err)
	}
}

func TestStreamConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(logger.Nop(), Config{}).Stream(context.Background(), newRequest(url), nil)
	if llm.KindOf(err) != llm.KindTransport {
		t.Fatalf("err=%v", err)
	}
}

func TestToMessagesAlternates(t *testing.T) {
	got := toMessages([]llm.Turn{
		{Role: llm.RoleAssistant, Text: "greeting"},
		{Role: llm.RoleUser, Text: "a"},
		{Role: llm.RoleUser, Text: "b"},
		{Role: llm.RoleAssistant, Text: "  "},
		{Role: llm.RoleAssistant, Text: "c"},
	})
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Role != "user" || got[0].Content[0].OfText.Text != "a\n\nb" {
		t.Fatalf("first=%+v", got[0])
	}
	if got[1].Role != "assistant" || got[1].Content[0].OfText.Text != "c" {
		t.Fatalf("second=%+v", got[1])
	}
}
