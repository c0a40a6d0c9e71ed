// Package policy decides whether an actor may perform an action on a
// resource. Evaluation is pure: no I/O, no clock, deterministic for a given
// actor/action/resource triple. Callers load the resource context first and
// surface any denial as an authorization failure.
package policy

import (
	"fmt"

	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
)

// ProjectAction describes a category of project operation.
type ProjectAction int

const (
	// ProjectActionUnspecified represents an invalid operation.
	ProjectActionUnspecified ProjectAction = iota
	// ProjectActionView represents read-only project access.
	ProjectActionView
	// ProjectActionUpdate represents project field mutations.
	ProjectActionUpdate
	// ProjectActionDelete represents project deletion.
	ProjectActionDelete
	// ProjectActionManageMembers represents adding or removing members.
	ProjectActionManageMembers
)

// TaskAction describes a category of task operation.
type TaskAction int

const (
	// TaskActionUnspecified represents an invalid operation.
	TaskActionUnspecified TaskAction = iota
	// TaskActionView represents read-only task access.
	TaskActionView
	// TaskActionUpdate represents task field mutations.
	TaskActionUpdate
	// TaskActionDelete represents task deletion.
	TaskActionDelete
)

// Decision is an allow/deny verdict. Denials always carry a human-readable
// reason and a machine-readable code.
type Decision struct {
	Allowed bool
	Reason  string
	Code    apperrors.Code
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the generic unauthorized code.
func Deny(reason string) Decision {
	return Decision{Reason: reason, Code: apperrors.CodeUnauthorized}
}

// DenyCode returns a denying decision with a specific code.
func DenyCode(code apperrors.Code, reason string) Decision {
	return Decision{Reason: reason, Code: code}
}

// Err converts the decision to a coded error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperrors.New(d.Code, d.Reason)
}

// EvaluateProject decides a project-scoped action. The admin role allows
// everything and is checked before any relationship rule.
func EvaluateProject(actor domain.User, action ProjectAction, project domain.Project) Decision {
	if actor.IsAdmin() {
		return Allow()
	}

	switch action {
	case ProjectActionView:
		if project.CanAccess(actor.ID) {
			return Allow()
		}
		return Deny("you don't have access to this project")
	case ProjectActionUpdate, ProjectActionDelete, ProjectActionManageMembers:
		if project.OwnerID == actor.ID {
			return Allow()
		}
		return Deny("only the project owner can perform this action")
	default:
		return Deny(fmt.Sprintf("unknown project action %d", action))
	}
}

// EvaluateTask decides a task-scoped action. The project argument is the
// task's project when it has one, nil otherwise. The admin role allows
// everything and is checked before any relationship rule.
func EvaluateTask(actor domain.User, action TaskAction, task domain.Task, project *domain.Project) Decision {
	if actor.IsAdmin() {
		return Allow()
	}

	ownsProject := project != nil && project.OwnerID == actor.ID

	switch action {
	case TaskActionView, TaskActionUpdate:
		if task.CreatedByID == actor.ID || task.AssignedToID == actor.ID || ownsProject {
			return Allow()
		}
		if action == TaskActionView {
			return Deny("you don't have access to this task")
		}
		return Deny("you don't have permission to update this task")
	case TaskActionDelete:
		if task.CreatedByID == actor.ID || ownsProject {
			return Allow()
		}
		return Deny("you don't have permission to delete this task")
	default:
		return Deny(fmt.Sprintf("unknown task action %d", action))
	}
}

// CanCreateProject decides project creation. Members cannot create projects.
func CanCreateProject(actor domain.User) Decision {
	if actor.Role == domain.RoleMember {
		return Deny("only admins and managers can create projects")
	}
	return Allow()
}

// CanAssignManager validates a project manager candidate. This is a check on
// the target user, so the admin override does not apply.
func CanAssignManager(candidate domain.User) Decision {
	if candidate.Role == domain.RoleAdmin || candidate.Role == domain.RoleManager {
		return Allow()
	}
	return DenyCode(apperrors.CodeManagerRoleInvalid,
		"only admins or managers can be assigned as project managers")
}

// CanAssignTask validates a task assignee against the task's project. A task
// without a project can be assigned to anyone. This is a check on the target
// user, so the admin override does not apply.
func CanAssignTask(project *domain.Project, assignee domain.User) Decision {
	if project == nil {
		return Allow()
	}
	if project.CanAccess(assignee.ID) {
		return Allow()
	}
	return DenyCode(apperrors.CodeAssigneeNotProjectMember,
		"user is not a member of this project")
}

// CanChangeRole decides a role mutation: admin-only, never on yourself.
func CanChangeRole(actor, target domain.User) Decision {
	if !actor.IsAdmin() {
		return Deny("only admins can change user roles")
	}
	if actor.ID == target.ID {
		return DenyCode(apperrors.CodeRoleChangeOnSelf, "you cannot change your own role")
	}
	return Allow()
}

// CanListUsers decides access to the full user directory.
func CanListUsers(actor domain.User) Decision {
	if actor.Role == domain.RoleMember {
		return Deny("you don't have permission to view all users")
	}
	return Allow()
}

// CanDeleteComment decides comment deletion: author-only, no admin override,
// matching the comment ownership rule.
func CanDeleteComment(actor domain.User, comment domain.Comment) Decision {
	if comment.AuthorID == actor.ID {
		return Allow()
	}
	return DenyCode(apperrors.CodeCommentNotAuthor, "you can only delete your own comments")
}
