package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/replygen-backend/internal/data/repos"
	types "github.com/yungbote/replygen-backend/internal/domain/jobs"
	"github.com/yungbote/replygen-backend/internal/platform/ctxutil"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/services"
)

/*
Context is the execution handle for one claimed job run.
Handlers never write job_run rows themselves; every lifecycle transition
(Succeed, Fail, Reschedule) goes through this object so the terminal-state
guard and the notifications stay in one place.
*/
type Context struct {
	Ctx    context.Context
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Notify services.JobNotifier
	Now    func() time.Time

	payload    map[string]any
	payloadErr error
	settled    bool
}

// terminal statuses are never overwritten by a later transition.
var terminal = []string{types.StatusSucceeded, types.StatusFailed}

func NewContext(ctx context.Context, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		Job:    job,
		Repo:   repo,
		Notify: notify,
		Now:    time.Now,
	}
	c.payloadErr = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// applyTraceData carries the enqueuing request's ids into the job's logs.
func (c *Context) applyTraceData() {
	if c == nil || c.Ctx == nil {
		return
	}
	traceID := c.payloadString("trace_id")
	reqID := c.payloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) payloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// PayloadErr is the error from decoding the stored payload, if any. Lookups
// on an undecodable payload see an empty map.
func (c *Context) PayloadErr() error {
	if c == nil || c.payloadErr == nil {
		return nil
	}
	return fmt.Errorf("decode payload: %w", c.payloadErr)
}

// PayloadUUID returns (uuid.Nil, false) when the key is missing or not a UUID.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := c.payloadString(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// DecodePayload unmarshals the raw payload into v.
func (c *Context) DecodePayload(v any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(c.Job.Payload, v)
}

// Settled reports whether a lifecycle transition already ended this attempt.
func (c *Context) Settled() bool { return c != nil && c.settled }

// Lifecycle writes must land even when the worker is shutting down.
func (c *Context) writeCtx() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(c.Ctx)
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

func (c *Context) update(updates map[string]interface{}) bool {
	if c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return true
	}
	ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Background(c.writeCtx()), c.Job.ID, terminal, updates)
	return err == nil && ok
}

/*
Succeed marks the run as terminally succeeded and stores result as JSON.
A run that already reached a terminal status is left untouched and no
notification is sent.
*/
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil || c.settled {
		return
	}
	c.settled = true
	now := c.now()
	res := datatypes.JSON([]byte(`{}`))
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	if !c.update(map[string]interface{}{
		"status":       types.StatusSucceeded,
		"stage":        finalStage,
		"error":        "",
		"result":       res,
		"next_run_at":  nil,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	}) {
		return
	}
	if c.Job != nil {
		c.Job.Status = types.StatusSucceeded
		c.Job.Stage = finalStage
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.NextRunAt = nil
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}

// Fail marks the run as terminally failed with err's message.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.settled {
		return
	}
	c.settled = true
	now := c.now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if !c.update(map[string]interface{}{
		"status":        types.StatusFailed,
		"stage":         stage,
		"error":         msg,
		"last_error_at": now,
		"next_run_at":   nil,
		"locked_at":     nil,
		"updated_at":    now,
	}) {
		return
	}
	if c.Job != nil {
		c.Job.Status = types.StatusFailed
		c.Job.Stage = stage
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.NextRunAt = nil
		c.Job.LockedAt = nil
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, msg)
	}
}

// Reschedule puts the run back in the queue as retrying, due at runAt.
func (c *Context) Reschedule(stage string, err error, runAt time.Time) {
	if c == nil || c.settled {
		return
	}
	c.settled = true
	now := c.now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	runAt = runAt.UTC()
	if !c.update(map[string]interface{}{
		"status":        types.StatusRetrying,
		"stage":         stage,
		"error":         msg,
		"last_error_at": now,
		"next_run_at":   runAt,
		"locked_at":     nil,
		"updated_at":    now,
	}) {
		return
	}
	if c.Job != nil {
		c.Job.Status = types.StatusRetrying
		c.Job.Stage = stage
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.NextRunAt = &runAt
		c.Job.LockedAt = nil
	}
}
