package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/replygen-backend/internal/data/repos"
	"github.com/yungbote/replygen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/replygen-backend/internal/domain/jobs"
	"github.com/yungbote/replygen-backend/internal/platform/ctxutil"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
)

type notified struct {
	event string
	err   string
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notified
}

func (n *recordingNotifier) JobCreated(uuid.UUID, *types.JobRun) {}

func (n *recordingNotifier) JobFailed(_ uuid.UUID, _ *types.JobRun, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notified{event: "failed", err: msg})
}

func (n *recordingNotifier) JobDone(uuid.UUID, *types.JobRun) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, notified{event: "done"})
}

func TestBackoffAfter(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 0},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 3 * time.Second},
		{attempt: 3, want: 7 * time.Second},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("attempt_%d", tc.attempt), func(t *testing.T) {
			if got := BackoffAfter(tc.attempt, time.Second); got != tc.want {
				t.Fatalf("BackoffAfter(%d)=%s, want %s", tc.attempt, got, tc.want)
			}
		})
	}
}

func TestRetryMarker(t *testing.T) {
	base := errors.New("busy")
	wrapped := fmt.Errorf("handler: %w", Retry(base))
	if !IsRetry(wrapped) || !errors.Is(wrapped, base) {
		t.Fatalf("retry marker lost through wrapping")
	}
	if IsRetry(base) || Retry(nil) != nil {
		t.Fatalf("unexpected retry classification")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	h := handlerFunc{typ: "a"}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(h); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
	if err := r.Register(handlerFunc{}); err == nil {
		t.Fatalf("empty type accepted")
	}
	if _, ok := r.Get("a"); !ok {
		t.Fatalf("Get(a) missing")
	}
}

type handlerFunc struct {
	typ string
	run func(*Context) error
}

func (h handlerFunc) Type() string { return h.typ }

func (h handlerFunc) Run(c *Context) error {
	if h.run == nil {
		return nil
	}
	return h.run(c)
}

func newJob(t *testing.T, repo repos.JobRunRepo, payload string) *types.JobRun {
	t.Helper()
	job := &types.JobRun{
		OwnerUserID: uuid.New(),
		JobType:     "test",
		Status:      types.StatusRunning,
		Attempts:    1,
		Payload:     datatypes.JSON([]byte(payload)),
		Result:      datatypes.JSON([]byte(`{}`)),
	}
	if _, err := repo.Create(dbctx.Background(context.Background()), []*types.JobRun{job}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestContextPayloadAndTrace(t *testing.T) {
	db := testutil.DB(t)
	repo := repos.NewJobRunRepo(db, testutil.Logger(t))
	id := uuid.New()
	job := newJob(t, repo, fmt.Sprintf(`{"message_id":%q,"bad":"nope","trace_id":"tr-1","request_id":"rq-1"}`, id))

	jc := NewContext(context.Background(), job, repo, nil)
	if got, ok := jc.PayloadUUID("message_id"); !ok || got != id {
		t.Fatalf("PayloadUUID=%s ok=%v", got, ok)
	}
	if _, ok := jc.PayloadUUID("bad"); ok {
		t.Fatalf("PayloadUUID accepted garbage")
	}
	if _, ok := jc.PayloadUUID("missing"); ok {
		t.Fatalf("PayloadUUID accepted missing key")
	}
	td := ctxutil.GetTraceData(jc.Ctx)
	if td == nil || td.TraceID != "tr-1" || td.RequestID != "rq-1" {
		t.Fatalf("trace data=%+v", td)
	}
	var decoded struct {
		MessageID uuid.UUID `json:"message_id"`
	}
	if err := jc.DecodePayload(&decoded); err != nil || decoded.MessageID != id {
		t.Fatalf("DecodePayload: %v %s", err, decoded.MessageID)
	}
}

func TestContextKeepsPayloadDecodeError(t *testing.T) {
	db := testutil.DB(t)
	repo := repos.NewJobRunRepo(db, testutil.Logger(t))

	ok := NewContext(context.Background(), newJob(t, repo, `{"message_id":"x"}`), repo, nil)
	if err := ok.PayloadErr(); err != nil {
		t.Fatalf("PayloadErr on valid payload: %v", err)
	}

	jc := NewContext(context.Background(), newJob(t, repo, `{"message_id":`), repo, nil)
	if err := jc.PayloadErr(); err == nil {
		t.Fatalf("PayloadErr: want decode error")
	}
	if _, found := jc.PayloadUUID("message_id"); found {
		t.Fatalf("PayloadUUID read from an undecodable payload")
	}
	if len(jc.Payload()) != 0 {
		t.Fatalf("Payload=%v, want empty", jc.Payload())
	}
}

func TestContextLifecycleSettlesOnce(t *testing.T) {
	db := testutil.DB(t)
	repo := repos.NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Background(context.Background())

	t.Run("succeed_then_fail", func(t *testing.T) {
		job := newJob(t, repo, `{}`)
		n := &recordingNotifier{}
		jc := NewContext(context.Background(), job, repo, n)
		jc.Succeed("done", map[string]string{"outcome": "succeeded"})
		jc.Fail("run", errors.New("late"))

		rows, _ := repo.GetByIDs(dbc, []uuid.UUID{job.ID})
		if rows[0].Status != types.StatusSucceeded || rows[0].Error != "" {
			t.Fatalf("row=%+v", rows[0])
		}
		if len(n.got) != 1 || n.got[0].event != "done" {
			t.Fatalf("notifications=%+v", n.got)
		}
	})

	t.Run("reschedule", func(t *testing.T) {
		job := newJob(t, repo, `{}`)
		jc := NewContext(context.Background(), job, repo, nil)
		at := time.Now().UTC().Add(3 * time.Second)
		jc.Reschedule("retry", errors.New("wait"), at)
		if !jc.Settled() {
			t.Fatalf("Reschedule did not settle")
		}
		rows, _ := repo.GetByIDs(dbc, []uuid.UUID{job.ID})
		if rows[0].Status != types.StatusRetrying || rows[0].NextRunAt == nil || rows[0].Error != "wait" {
			t.Fatalf("row=%+v", rows[0])
		}
	})

	t.Run("cancelled_context_still_writes", func(t *testing.T) {
		job := newJob(t, repo, `{}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		jc := NewContext(ctx, job, repo, nil)
		jc.Fail("run", errors.New("boom"))
		rows, _ := repo.GetByIDs(dbc, []uuid.UUID{job.ID})
		if rows[0].Status != types.StatusFailed {
			t.Fatalf("status=%s", rows[0].Status)
		}
	})
}
