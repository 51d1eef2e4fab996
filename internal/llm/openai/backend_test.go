package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/replygen-backend/internal/llm"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

func chunkJSON(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

type captured struct {
	auth string
	body string
}

func streamServer(t *testing.T, chunks []string, seen chan<- captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			seen <- captured{auth: r.Header.Get("Authorization"), body: string(raw)}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunkJSON(c))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRequest(baseURL string) llm.Request {
	temp := 0.2
	return llm.Request{
		Credentials:  llm.Credentials{APIKey: "sk-test", BaseURL: baseURL},
		Model:        "gpt-4o",
		Instructions: "Be brief.",
		Temperature:  &temp,
		History: []llm.Turn{
			{Role: llm.RoleUser, Text: "Hi"},
			{Role: llm.RoleAssistant, Text: "Hello!"},
			{Role: llm.RoleUser, Text: "How are you?"},
		},
	}
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	seen := make(chan captured, 1)
	srv := streamServer(t, []string{"Hello", " world"}, seen)
	b := New(logger.Nop(), Config{})

	var got []string
	text, err := b.Stream(context.Background(), newRequest(srv.URL), func(c string) error {
		got = append(got, c)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if text != "Hello world" {
		t.Fatalf("text=%q", text)
	}
	if len(got) != 2 || got[0] != "Hello" || got[1] != " world" {
		t.Fatalf("chunks=%v", got)
	}
	c := <-seen
	auth, body := c.auth, c.body
	if auth != "Bearer sk-test" {
		t.Fatalf("Authorization=%q", auth)
	}
	for _, want := range []string{`"model":"gpt-4o"`, `"stream":true`, "Be brief.", "How are you?"} {
		if !strings.Contains(body, want) {
			t.Fatalf("request body missing %s: %s", want, body)
		}
	}
}

func TestStreamStopsWhenCallbackErrors(t *testing.T) {
	srv := streamServer(t, []string{"a", "b", "c"}, nil)
	b := New(logger.Nop(), Config{})

	stop := errors.New("stop")
	calls := 0
	_, err := b.Stream(context.Background(), newRequest(srv.URL), func(string) error {
		calls++
		return stop
	})
	if err != stop {
		t.Fatalf("err=%v, want callback error unchanged", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
}

func TestStreamClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   llm.Kind
	}{
		{"quota", 429, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, llm.KindRateLimited},
		{"unauthorized", 401, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, llm.KindUnconfiguredCredentials},
		{"server", 503, `{"error":{"message":"overloaded","type":"server_error"}}`, llm.KindTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
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

func TestStreamMissingKey(t *testing.T) {
	req := newRequest("http://127.0.0.1:1")
	req.Credentials.APIKey = "  "
	_, err := New(logger.Nop(), Config{}).Stream(context.Background(), req, nil)
	if llm.KindOf(err) != llm.KindUnconfiguredCredentials {
		t.Fatalf("err=%v", err)
	}
}

func TestStreamConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(logger.Nop(), Config{}).Stream(context.Background(), newRequest(url), nil)
	if llm.KindOf(err) != llm.KindTransport {
		t.Fatalf("err=%v kind=%q", err, llm.KindOf(err))
	}
}
