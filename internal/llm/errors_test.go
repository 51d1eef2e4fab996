package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	cases := []struct {
		status int
		code   string
		want   Kind
	}{
		{401, "", KindUnconfiguredCredentials},
		{403, "", KindUnconfiguredCredentials},
		{429, "rate_limit_exceeded", KindRateLimited},
		{429, "insufficient_quota", KindRateLimited},
		{402, "", KindRateLimited},
		{400, "insufficient_quota", KindRateLimited},
		{500, "", KindTransport},
		{529, "overloaded_error", KindTransport},
		{400, "invalid_request_error", KindOther},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_%s", tc.status, tc.code), func(t *testing.T) {
			if got := KindForStatus(tc.status, tc.code); got != tc.want {
				t.Fatalf("KindForStatus=%s, want %s", got, tc.want)
			}
		})
	}
}

func TestKindOfAndMessage(t *testing.T) {
	base := errors.New("dial tcp 10.0.0.1:443: connect: connection refused")
	err := fmt.Errorf("stream: %w", NewError(KindTransport, "OpenAI", base))
	if KindOf(err) != KindTransport {
		t.Fatalf("KindOf=%s", KindOf(err))
	}
	var le *Error
	if !errors.As(err, &le) || le.Error() != base.Error() {
		t.Fatalf("Error() should be the underlying description, got %q", le.Error())
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors have no kind")
	}
}

func TestIsTransport(t *testing.T) {
	if !IsTransport(&url.Error{Op: "Post", URL: "http://x", Err: errors.New("eof")}) {
		t.Fatalf("url.Error should be transport")
	}
	if !IsTransport(io.ErrUnexpectedEOF) {
		t.Fatalf("unexpected EOF should be transport")
	}
	if IsTransport(&url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}) {
		t.Fatalf("cancellation is not transport")
	}
	if IsTransport(errors.New("boom")) {
		t.Fatalf("plain error is not transport")
	}
}
