package service_test

import (
	"context"
	"testing"

	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
)

func TestListUsersDeniedToMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.List(ctx, f.bob)
	if apperrors.GetCode(err) != apperrors.CodeUnauthorized {
		t.Fatalf("member list code = %v, want %v", apperrors.GetCode(err), apperrors.CodeUnauthorized)
	}

	for _, actor := range []domain.User{f.manager, f.admin} {
		users, err := f.users.List(ctx, actor)
		if err != nil {
			t.Fatalf("%s list: %v", actor.Role, err)
		}
		if len(users) != 4 {
			t.Errorf("%s sees %d users, want 4", actor.Role, len(users))
		}
	}
}

func TestTeamMembersExcludesRequester(t *testing.T) {
	f := newFixture(t)

	team, err := f.users.TeamMembers(context.Background(), f.bob)
	if err != nil {
		t.Fatalf("TeamMembers: %v", err)
	}
	if len(team) != 3 {
		t.Fatalf("got %d team members, want 3", len(team))
	}
	for _, user := range team {
		if user.ID == f.bob.ID {
			t.Error("requester included in team members")
		}
	}
}

func TestUpdateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Only admins may change roles.
	_, err := f.users.UpdateRole(ctx, f.manager, f.bob.ID, "MANAGER")
	if apperrors.GetCode(err) != apperrors.CodeUnauthorized {
		t.Fatalf("manager change code = %v, want %v", apperrors.GetCode(err), apperrors.CodeUnauthorized)
	}

	// Never on yourself.
	_, err = f.users.UpdateRole(ctx, f.admin, f.admin.ID, "MEMBER")
	if apperrors.GetCode(err) != apperrors.CodeRoleChangeOnSelf {
		t.Fatalf("self change code = %v, want %v", apperrors.GetCode(err), apperrors.CodeRoleChangeOnSelf)
	}

	// Role name validated before anything loads.
	_, err = f.users.UpdateRole(ctx, f.admin, "missing", "OVERLORD")
	if apperrors.GetCode(err) != apperrors.CodeRoleInvalid {
		t.Fatalf("invalid role code = %v, want %v", apperrors.GetCode(err), apperrors.CodeRoleInvalid)
	}

	_, err = f.users.UpdateRole(ctx, f.admin, "missing", "MANAGER")
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("missing target code = %v, want %v", apperrors.GetCode(err), apperrors.CodeNotFound)
	}

	updated, err := f.users.UpdateRole(ctx, f.admin, f.bob.ID, "MANAGER")
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if updated.Role != domain.RoleManager {
		t.Errorf("role = %q, want MANAGER", updated.Role)
	}
	stored, err := f.users.Get(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Role != domain.RoleManager {
		t.Errorf("persisted role = %q, want MANAGER", stored.Role)
	}
}
