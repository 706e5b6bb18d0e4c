package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
)

func TestCreateGroup_And_GetGroup(t *testing.T) {
	db := newRepoDB(t, &domain.Group{})
	ctx := context.Background()

	g, err := CreateGroup(ctx, db, "late night", "ab12cd", "u1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if g.ID == "" || g.Name != "late night" {
		t.Fatalf("unexpected Group fields: %+v", g)
	}

	got, err := GetGroup(ctx, db, g.ID)
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if got.Name != "late night" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	if _, err := GetGroup(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetGroupByCode_CaseInsensitive(t *testing.T) {
	db := newRepoDB(t, &domain.Group{})
	ctx := context.Background()

	g, err := CreateGroup(ctx, db, "g", "ab12cd", "u1")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	for _, code := range []string{"AB12CD", "ab12cd", "  Ab12Cd  "} {
		got, err := GetGroupByCode(ctx, db, code)
		if err != nil {
			t.Fatalf("GetGroupByCode(%q): %v", code, err)
		}
		if got.ID != g.ID {
			t.Fatalf("GetGroupByCode(%q): wrong group %s", code, got.ID)
		}
	}

	if _, err := GetGroupByCode(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
