package dberr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock_wrapped", err: fmt.Errorf("finalize: %w", &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "unique_violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "sqlite_busy", err: errors.New("database is locked"), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "not_found", err: gorm.ErrRecordNotFound, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsConflictAndNotFound(t *testing.T) {
	if !IsConflict(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("expected unique violation to be a conflict")
	}
	if !IsConflict(errors.New("UNIQUE constraint failed: message.conversation_id")) {
		t.Fatalf("expected sqlite unique failure to be a conflict")
	}
	if !IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)) {
		t.Fatalf("expected wrapped record-not-found")
	}
}
