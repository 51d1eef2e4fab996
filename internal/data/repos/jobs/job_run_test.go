package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/replygen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/replygen-backend/internal/domain/jobs"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
)

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Background(ctx)
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	owner := uuid.New()

	queued := &types.JobRun{
		OwnerUserID: owner,
		JobType:     "test_job",
		EntityType:  "message",
		EntityID:    ptrUUID(uuid.New()),
		Status:      types.StatusQueued,
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-3 * time.Hour),
	}
	retryLater := &types.JobRun{
		OwnerUserID: owner,
		JobType:     "test_job",
		EntityType:  "message",
		EntityID:    ptrUUID(uuid.New()),
		Status:      types.StatusRetrying,
		Attempts:    1,
		NextRunAt:   ptrTime(now.Add(time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-2 * time.Hour),
	}
	staleRunning := &types.JobRun{
		OwnerUserID: owner,
		JobType:     "test_job",
		EntityType:  "message",
		EntityID:    ptrUUID(uuid.New()),
		Status:      types.StatusRunning,
		Attempts:    1,
		HeartbeatAt: ptrTime(now.Add(-10 * time.Hour)),
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   now.Add(-1 * time.Hour),
	}

	created, err := repo.Create(dbc, []*types.JobRun{queued, retryLater, staleRunning})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Create: expected 3, got %d", len(created))
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{queued.ID, retryLater.ID, staleRunning.ID}); err != nil || len(rows) != 3 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	if ok, err := repo.ExistsRunnableForEntity(dbc, "message", *queued.EntityID, "test_job"); err != nil || !ok {
		t.Fatalf("ExistsRunnableForEntity: ok=%v err=%v", ok, err)
	}

	first, err := repo.ClaimNextRunnable(dbc, now, 30*time.Minute)
	if err != nil || first == nil || first.ID != queued.ID {
		t.Fatalf("ClaimNextRunnable #1: job=%v err=%v", first, err)
	}
	if first.Attempts != 1 || first.Status != types.StatusRunning {
		t.Fatalf("claimed job: attempts=%d status=%s", first.Attempts, first.Status)
	}

	// The retrying job is not due yet, so the stale running one is next.
	second, err := repo.ClaimNextRunnable(dbc, now, 30*time.Minute)
	if err != nil || second == nil || second.ID != staleRunning.ID {
		t.Fatalf("ClaimNextRunnable #2: job=%v err=%v", second, err)
	}
	if second.Attempts != 2 {
		t.Fatalf("stale job attempts=%d, want 2", second.Attempts)
	}

	if none, err := repo.ClaimNextRunnable(dbc, now, 30*time.Minute); err != nil || none != nil {
		t.Fatalf("ClaimNextRunnable #3: job=%v err=%v", none, err)
	}

	due, err := repo.ClaimNextRunnable(dbc, now.Add(2*time.Hour), 3*time.Hour)
	if err != nil || due == nil || due.ID != retryLater.ID {
		t.Fatalf("ClaimNextRunnable(due): job=%v err=%v", due, err)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{types.StatusSucceeded}, map[string]interface{}{"status": types.StatusSucceeded})
	if err != nil || !ok {
		t.Fatalf("UpdateFieldsUnlessStatus: ok=%v err=%v", ok, err)
	}
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{types.StatusSucceeded}, map[string]interface{}{"status": types.StatusFailed})
	if err != nil || ok {
		t.Fatalf("UpdateFieldsUnlessStatus(terminal): ok=%v err=%v", ok, err)
	}

	latest, err := repo.GetLatestByEntity(dbc, "message", *queued.EntityID, "test_job")
	if err != nil || latest == nil || latest.Status != types.StatusSucceeded {
		t.Fatalf("GetLatestByEntity: job=%v err=%v", latest, err)
	}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

func ptrTime(t time.Time) *time.Time { return &t }
