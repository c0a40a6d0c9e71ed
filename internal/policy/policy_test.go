package policy

import (
	"testing"

	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
)

var (
	admin    = domain.User{ID: "admin-1", Role: domain.RoleAdmin}
	manager  = domain.User{ID: "manager-1", Role: domain.RoleManager}
	member   = domain.User{ID: "member-1", Role: domain.RoleMember}
	outsider = domain.User{ID: "outsider-1", Role: domain.RoleMember}
)

func project() domain.Project {
	return domain.Project{
		ID:        "proj-1",
		OwnerID:   manager.ID,
		MemberIDs: []string{member.ID},
	}
}

func TestEvaluateProjectView(t *testing.T) {
	tests := []struct {
		name  string
		actor domain.User
		want  bool
	}{
		{"admin", admin, true},
		{"owner", manager, true},
		{"member", member, true},
		{"outsider", outsider, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := EvaluateProject(tc.actor, ProjectActionView, project())
			if decision.Allowed != tc.want {
				t.Fatalf("allowed = %v, want %v (reason %q)", decision.Allowed, tc.want, decision.Reason)
			}
			if !tc.want && decision.Reason == "" {
				t.Fatal("denial must carry a reason")
			}
		})
	}
}

func TestEvaluateProjectMutations(t *testing.T) {
	actions := []ProjectAction{ProjectActionUpdate, ProjectActionDelete, ProjectActionManageMembers}
	for _, action := range actions {
		if d := EvaluateProject(admin, action, project()); !d.Allowed {
			t.Fatalf("admin denied action %d: %q", action, d.Reason)
		}
		if d := EvaluateProject(manager, action, project()); !d.Allowed {
			t.Fatalf("owner denied action %d: %q", action, d.Reason)
		}
		if d := EvaluateProject(member, action, project()); d.Allowed {
			t.Fatalf("member allowed action %d", action)
		}
		if d := EvaluateProject(outsider, action, project()); d.Allowed {
			t.Fatalf("outsider allowed action %d", action)
		}
	}
}

func TestEvaluateProjectUnknownActionDenied(t *testing.T) {
	if d := EvaluateProject(member, ProjectActionUnspecified, project()); d.Allowed {
		t.Fatal("unspecified action must be denied")
	}
	// Admin override still applies even to unknown actions.
	if d := EvaluateProject(admin, ProjectActionUnspecified, project()); !d.Allowed {
		t.Fatal("admin is always allowed")
	}
}

func TestEvaluateTask(t *testing.T) {
	creator := domain.User{ID: "creator-1", Role: domain.RoleMember}
	assignee := domain.User{ID: "assignee-1", Role: domain.RoleMember}
	proj := project()
	task := domain.Task{
		ID:           "task-1",
		ProjectID:    proj.ID,
		CreatedByID:  creator.ID,
		AssignedToID: assignee.ID,
	}

	tests := []struct {
		name   string
		actor  domain.User
		action TaskAction
		want   bool
	}{
		{"admin view", admin, TaskActionView, true},
		{"creator view", creator, TaskActionView, true},
		{"assignee view", assignee, TaskActionView, true},
		{"project owner view", manager, TaskActionView, true},
		{"outsider view", outsider, TaskActionView, false},
		{"admin update", admin, TaskActionUpdate, true},
		{"creator update", creator, TaskActionUpdate, true},
		{"assignee update", assignee, TaskActionUpdate, true},
		{"project owner update", manager, TaskActionUpdate, true},
		{"outsider update", outsider, TaskActionUpdate, false},
		{"admin delete", admin, TaskActionDelete, true},
		{"creator delete", creator, TaskActionDelete, true},
		{"assignee delete", assignee, TaskActionDelete, false},
		{"project owner delete", manager, TaskActionDelete, true},
		{"outsider delete", outsider, TaskActionDelete, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := EvaluateTask(tc.actor, tc.action, task, &proj)
			if decision.Allowed != tc.want {
				t.Fatalf("allowed = %v, want %v (reason %q)", decision.Allowed, tc.want, decision.Reason)
			}
		})
	}
}

func TestEvaluateTaskWithoutProject(t *testing.T) {
	task := domain.Task{ID: "task-2", CreatedByID: member.ID, AssignedToID: member.ID}

	// The project-owner relationship cannot apply without a project.
	if d := EvaluateTask(manager, TaskActionDelete, task, nil); d.Allowed {
		t.Fatal("non-creator cannot delete a projectless task")
	}
	if d := EvaluateTask(member, TaskActionDelete, task, nil); !d.Allowed {
		t.Fatalf("creator denied: %q", d.Reason)
	}
}

func TestCanCreateProject(t *testing.T) {
	if d := CanCreateProject(member); d.Allowed {
		t.Fatal("member must not create projects")
	}
	if d := CanCreateProject(manager); !d.Allowed {
		t.Fatalf("manager denied: %q", d.Reason)
	}
	if d := CanCreateProject(admin); !d.Allowed {
		t.Fatalf("admin denied: %q", d.Reason)
	}
}

func TestCanAssignManager(t *testing.T) {
	if d := CanAssignManager(member); d.Allowed {
		t.Fatal("member cannot be project manager")
	} else if d.Code != apperrors.CodeManagerRoleInvalid {
		t.Fatalf("code = %q", d.Code)
	}
	if d := CanAssignManager(manager); !d.Allowed {
		t.Fatalf("manager rejected: %q", d.Reason)
	}
	if d := CanAssignManager(admin); !d.Allowed {
		t.Fatalf("admin rejected: %q", d.Reason)
	}
}

func TestCanAssignTask(t *testing.T) {
	proj := project()

	if d := CanAssignTask(&proj, member); !d.Allowed {
		t.Fatalf("project member rejected: %q", d.Reason)
	}
	if d := CanAssignTask(&proj, manager); !d.Allowed {
		t.Fatalf("project owner rejected: %q", d.Reason)
	}
	if d := CanAssignTask(&proj, outsider); d.Allowed {
		t.Fatal("outsider must not be assignable")
	} else if d.Code != apperrors.CodeAssigneeNotProjectMember {
		t.Fatalf("code = %q", d.Code)
	}
	// Admins are still subject to the membership rule: it is about the
	// target's relationship, not the actor's role.
	if d := CanAssignTask(&proj, admin); d.Allowed {
		t.Fatal("non-member admin must not be assignable")
	}
	if d := CanAssignTask(nil, outsider); !d.Allowed {
		t.Fatalf("projectless task rejected assignee: %q", d.Reason)
	}
}

func TestCanChangeRole(t *testing.T) {
	if d := CanChangeRole(manager, member); d.Allowed {
		t.Fatal("manager must not change roles")
	}
	if d := CanChangeRole(admin, admin); d.Allowed {
		t.Fatal("admin must not change own role")
	} else if d.Code != apperrors.CodeRoleChangeOnSelf {
		t.Fatalf("code = %q", d.Code)
	}
	if d := CanChangeRole(admin, member); !d.Allowed {
		t.Fatalf("admin denied: %q", d.Reason)
	}
}

func TestCanListUsers(t *testing.T) {
	if d := CanListUsers(member); d.Allowed {
		t.Fatal("member must not list all users")
	}
	if d := CanListUsers(manager); !d.Allowed {
		t.Fatalf("manager denied: %q", d.Reason)
	}
}

func TestCanDeleteComment(t *testing.T) {
	comment := domain.Comment{ID: "c1", AuthorID: member.ID}
	if d := CanDeleteComment(member, comment); !d.Allowed {
		t.Fatalf("author denied: %q", d.Reason)
	}
	if d := CanDeleteComment(admin, comment); d.Allowed {
		t.Fatal("non-author cannot delete, even admins")
	}
}

func TestDecisionErr(t *testing.T) {
	if err := Allow().Err(); err != nil {
		t.Fatalf("allow produced error %v", err)
	}
	err := Deny("no access").Err()
	if err == nil {
		t.Fatal("deny must produce an error")
	}
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("code = %q", apperrors.GetCode(err))
	}
	if err.Error() != "no access" {
		t.Fatalf("reason lost: %q", err.Error())
	}
}
