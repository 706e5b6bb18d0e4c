package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/hushwire/go-anonchat-backend/internal/domain"
	"github.com/hushwire/go-anonchat-backend/internal/repo"
)

// fakeMembershipRepo is an in-memory MembershipRepo with per-method hooks.
type fakeMembershipRepo struct {
	getFn      func(groupID, userID string) (*domain.Membership, error)
	byHandleFn func(groupID, handle string) (*domain.Membership, error)
	countFn    func(groupID string) (int64, error)
	createFn   func(groupID, userID, handle string) (*domain.Membership, error)
}

func (f *fakeMembershipRepo) GetMembership(_ context.Context, _ *gorm.DB, groupID, userID string) (*domain.Membership, error) {
	return f.getFn(groupID, userID)
}

func (f *fakeMembershipRepo) GetMembershipByHandle(_ context.Context, _ *gorm.DB, groupID, handle string) (*domain.Membership, error) {
	return f.byHandleFn(groupID, handle)
}

func (f *fakeMembershipRepo) CountMembers(_ context.Context, _ *gorm.DB, groupID string) (int64, error) {
	return f.countFn(groupID)
}

func (f *fakeMembershipRepo) CreateMembership(_ context.Context, _ *gorm.DB, groupID, userID, handle string) (*domain.Membership, error) {
	return f.createFn(groupID, userID, handle)
}

func TestResolveOrAssignHandle_ExistingMembershipShortCircuits(t *testing.T) {
	created := false
	f := &fakeMembershipRepo{
		getFn: func(groupID, userID string) (*domain.Membership, error) {
			return &domain.Membership{GroupID: groupID, UserID: userID, Handle: "Guest3"}, nil
		},
		createFn: func(_, _, _ string) (*domain.Membership, error) {
			created = true
			return nil, errors.New("must not be called")
		},
	}
	svc := NewIdentityService(nil, f)

	h, err := svc.ResolveOrAssignHandle(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("ResolveOrAssignHandle: %v", err)
	}
	if h != "Guest3" {
		t.Fatalf("expected existing handle Guest3, got %s", h)
	}
	if created {
		t.Fatal("existing membership must not trigger an insert")
	}
}

func TestResolveOrAssignHandle_AssignsOrdinalHandle(t *testing.T) {
	var gotHandle string
	f := &fakeMembershipRepo{
		getFn: func(_, _ string) (*domain.Membership, error) {
			return nil, repo.ErrNotFound
		},
		countFn: func(_ string) (int64, error) { return 4, nil },
		createFn: func(groupID, userID, handle string) (*domain.Membership, error) {
			gotHandle = handle
			return &domain.Membership{GroupID: groupID, UserID: userID, Handle: handle}, nil
		},
	}
	svc := NewIdentityService(nil, f)
	svc.PickPrefix = func() string { return "Member" }

	h, err := svc.ResolveOrAssignHandle(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("ResolveOrAssignHandle: %v", err)
	}
	if h != "Member5" || gotHandle != "Member5" {
		t.Fatalf("expected Member5 (count 4 + 1), got %s", h)
	}
}

func TestResolveOrAssignHandle_LostRaceFallsBackToSurvivor(t *testing.T) {
	calls := 0
	f := &fakeMembershipRepo{
		getFn: func(_, _ string) (*domain.Membership, error) {
			calls++
			if calls == 1 {
				return nil, repo.ErrNotFound
			}
			// After the lost insert race the surviving row exists.
			return &domain.Membership{Handle: "Anon7"}, nil
		},
		countFn: func(_ string) (int64, error) { return 6, nil },
		createFn: func(_, _, _ string) (*domain.Membership, error) {
			return nil, repo.ErrDuplicate
		},
	}
	svc := NewIdentityService(nil, f)
	svc.PickPrefix = func() string { return "User" }

	h, err := svc.ResolveOrAssignHandle(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("ResolveOrAssignHandle: %v", err)
	}
	if h != "Anon7" {
		t.Fatalf("expected surviving handle Anon7, got %s", h)
	}
}

func TestDefaultPrefixPicker_StaysInVocabulary(t *testing.T) {
	svc := NewIdentityService(nil, &fakeMembershipRepo{})
	valid := map[string]bool{"User": true, "Member": true, "Guest": true, "Anon": true}
	for i := 0; i < 50; i++ {
		if p := svc.PickPrefix(); !valid[p] {
			t.Fatalf("prefix %q outside vocabulary", p)
		}
	}
}

func TestMemberHandle_NotAMember(t *testing.T) {
	f := &fakeMembershipRepo{
		getFn: func(_, _ string) (*domain.Membership, error) { return nil, repo.ErrNotFound },
	}
	svc := NewIdentityService(nil, f)

	if _, err := svc.MemberHandle(context.Background(), "g1", "u1"); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
}

func TestHandleOwner(t *testing.T) {
	f := &fakeMembershipRepo{
		byHandleFn: func(_, handle string) (*domain.Membership, error) {
			if handle == "User1" {
				return &domain.Membership{UserID: "u-real"}, nil
			}
			return nil, repo.ErrNotFound
		},
	}
	svc := NewIdentityService(nil, f)

	owner, err := svc.HandleOwner(context.Background(), "g1", "User1")
	if err != nil {
		t.Fatalf("HandleOwner: %v", err)
	}
	if owner != "u-real" {
		t.Fatalf("expected u-real, got %s", owner)
	}

	if _, err := svc.HandleOwner(context.Background(), "g1", "Ghost9"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestIsMember(t *testing.T) {
	f := &fakeMembershipRepo{
		getFn: func(_, userID string) (*domain.Membership, error) {
			if userID == "u1" {
				return &domain.Membership{UserID: "u1"}, nil
			}
			return nil, repo.ErrNotFound
		},
	}
	svc := NewIdentityService(nil, f)

	in, err := svc.IsMember(context.Background(), "g1", "u1")
	if err != nil || !in {
		t.Fatalf("expected member, got %v err=%v", in, err)
	}
	out, err := svc.IsMember(context.Background(), "g1", "u2")
	if err != nil || out {
		t.Fatalf("expected non-member, got %v err=%v", out, err)
	}
}
