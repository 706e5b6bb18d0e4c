package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

func TestCreateUser_GeneratesIDWhenEmpty(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	u, err := CreateUser(context.Background(), db, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated ID")
	}
	if u.IsBanned || u.ReportCount != 0 {
		t.Fatalf("fresh user must be unbanned with zero reports: %+v", u)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	if _, err := GetUser(context.Background(), db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncrementReportCount_BansAtThreshold(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "u1"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	for i := 1; i <= 3; i++ {
		u, err := IncrementReportCount(ctx, db, "u1", 3)
		if err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
		if u.ReportCount != i {
			t.Fatalf("report %d: count = %d", i, u.ReportCount)
		}
		wantBanned := i >= 3
		if u.IsBanned != wantBanned {
			t.Fatalf("report %d: banned = %v, want %v", i, u.IsBanned, wantBanned)
		}
	}

	// The flag persists.
	got, err := GetUser(ctx, db, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !got.IsBanned || got.ReportCount != 3 {
		t.Fatalf("persisted state wrong: %+v", got)
	}

	// Reports past the threshold still count; the ban does not flip back.
	u, err := IncrementReportCount(ctx, db, "u1", 3)
	if err != nil {
		t.Fatalf("report 4: %v", err)
	}
	if u.ReportCount != 4 || !u.IsBanned {
		t.Fatalf("report 4 state wrong: %+v", u)
	}
}

func TestIncrementReportCount_UnknownUser(t *testing.T) {
	db := newRepoDB(t, &domain.User{})
	if _, err := IncrementReportCount(context.Background(), db, "ghost", 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
