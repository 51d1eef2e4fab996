package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/replygen-backend/internal/data/repos/testutil"
	"github.com/yungbote/replygen-backend/internal/realtime"
	"github.com/yungbote/replygen-backend/internal/services"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("JOB_MAX_ATTEMPTS", "5")
	t.Setenv("BROADCAST_THROTTLE", "250ms")
	t.Setenv("CANCEL_DURABLE_RECHECK_EVERY", "4")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", "operator-secret")

	cfg := LoadConfig(testutil.Logger(t))
	if cfg.DBDriver != DBDriverPostgres {
		t.Fatalf("db driver=%q", cfg.DBDriver)
	}
	if cfg.Worker.MaxAttempts != 5 || cfg.Worker.BackoffUnit != time.Second {
		t.Fatalf("worker=%+v", cfg.Worker)
	}
	if cfg.Chat.BroadcastThrottle != 250*time.Millisecond || cfg.Chat.DurableRecheckEvery != 4 {
		t.Fatalf("chat=%+v", cfg.Chat)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors=%v", cfg.CORSOrigins)
	}
	if cfg.CredentialsSecret != "operator-secret" {
		t.Fatalf("credentials secret not loaded")
	}
}

func TestNewRequiresCredentialsSecretForPostgres(t *testing.T) {
	t.Setenv("DB_DRIVER", DBDriverPostgres)
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", "")

	log := testutil.Logger(t)
	if _, err := New(log, LoadConfig(log)); err == nil || !strings.Contains(err.Error(), "CREDENTIALS_ENCRYPTION_KEY") {
		t.Fatalf("New err=%v", err)
	}
}

func newTestApp(t *testing.T, redisAddr string) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("DB_DRIVER", DBDriverSQLite)
	t.Setenv("REDIS_ADDR", redisAddr)
	t.Setenv("PORT", "0")
	t.Setenv("WORKER_POLL_INTERVAL", "10ms")
	t.Setenv("CREDENTIALS_ENCRYPTION_KEY", "")

	log := testutil.Logger(t)
	a, err := New(log, LoadConfig(log))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func TestAppWiresInProcessMode(t *testing.T) {
	a := newTestApp(t, "")

	if _, ok := a.Clients.Emitter.(*services.HubEmitter); !ok {
		t.Fatalf("emitter=%T, want hub emitter", a.Clients.Emitter)
	}
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz=%d %s", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages/"+uuid.NewString()+"/cancel", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated cancel=%d", rec.Code)
	}
}

func TestAppRunForwardsRedisBroadcasts(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newTestApp(t, mr.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	client := a.SSEHub.NewSSEClient(uuid.New())
	a.SSEHub.AddChannel(client, "conversation:x")
	defer a.SSEHub.CloseClient(client)

	// The forwarder subscribes asynchronously; publish until a message lands.
	deadline := time.Now().Add(5 * time.Second)
	var got realtime.SSEMessage
	for got.Channel == "" && time.Now().Before(deadline) {
		a.Clients.Emitter.Emit(ctx, realtime.SSEMessage{Channel: "conversation:x", Event: realtime.SSEEventChatMessageUpdated})
		select {
		case got = <-client.Outbound:
		case <-time.After(50 * time.Millisecond):
		}
	}
	if got.Event != realtime.SSEEventChatMessageUpdated {
		t.Fatalf("no message forwarded through redis")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("Run did not stop")
	}
}
