package repo

import (
	"context"
	"testing"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

func TestCreateBlock_IdempotentAndDirectional(t *testing.T) {
	db := newRepoDB(t, &domain.BlockRelation{})
	ctx := context.Background()

	if err := CreateBlock(ctx, db, "u1", "u2"); err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	// Repeating the same edge is not an error.
	if err := CreateBlock(ctx, db, "u1", "u2"); err != nil {
		t.Fatalf("repeat CreateBlock: %v", err)
	}

	var total int64
	if err := db.Model(&domain.BlockRelation{}).Count(&total).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 edge after idempotent insert, got %d", total)
	}

	blocked, err := IsBlocked(ctx, db, "u1", "u2")
	if err != nil || !blocked {
		t.Fatalf("expected u1→u2 blocked, got %v err=%v", blocked, err)
	}
	// The reverse direction is a distinct edge.
	reverse, err := IsBlocked(ctx, db, "u2", "u1")
	if err != nil || reverse {
		t.Fatalf("expected u2→u1 not blocked, got %v err=%v", reverse, err)
	}
}

func TestBlockersOf_BatchedSubset(t *testing.T) {
	db := newRepoDB(t, &domain.BlockRelation{})
	ctx := context.Background()

	// u2 and u4 have blocked the sender; u3 has not. u5 blocked someone else.
	seed := []struct{ blocker, blocked string }{
		{"u2", "sender"},
		{"u4", "sender"},
		{"u5", "other"},
	}
	for _, s := range seed {
		if err := CreateBlock(ctx, db, s.blocker, s.blocked); err != nil {
			t.Fatalf("seed %s→%s: %v", s.blocker, s.blocked, err)
		}
	}

	got, err := BlockersOf(ctx, db, "sender", []string{"u2", "u3", "u4", "u5"})
	if err != nil {
		t.Fatalf("BlockersOf: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 blockers, got %v", got)
	}
	if _, ok := got["u2"]; !ok {
		t.Fatal("u2 missing from blockers")
	}
	if _, ok := got["u4"]; !ok {
		t.Fatal("u4 missing from blockers")
	}
	if _, ok := got["u3"]; ok {
		t.Fatal("u3 must not appear in blockers")
	}
}

func TestBlockersOf_EmptyCandidates(t *testing.T) {
	db := newRepoDB(t, &domain.BlockRelation{})
	got, err := BlockersOf(context.Background(), db, "sender", nil)
	if err != nil {
		t.Fatalf("BlockersOf: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
}
