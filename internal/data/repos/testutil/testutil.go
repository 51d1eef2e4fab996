package testutil

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/data/db"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/platform/secretbox"
)

// TestCredentialsSecret keys the credential columns of every test database.
const TestCredentialsSecret = "replygen-test-credentials"

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	boxOnce sync.Once
	boxErr  error

	dbSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a freshly migrated in-memory database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	boxOnce.Do(func() {
		var b *secretbox.Box
		if b, boxErr = secretbox.NewBox(TestCredentialsSecret); boxErr == nil {
			secretbox.Install(b)
		}
	})
	if boxErr != nil {
		tb.Fatalf("failed to init credentials box: %v", boxErr)
	}
	name := fmt.Sprintf("testdb_%d_%d", os.Getpid(), dbSeq.Add(1))
	gdb, err := db.OpenSQLiteMemory(name)
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
