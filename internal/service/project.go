package service

import (
	"context"
	"time"

	"github.com/taskdeck/taskdeck/internal/activity"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/policy"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// ProjectCreate is the inbound shape for project creation. The actor
// becomes the owner; an empty ManagerID defaults the manager to the actor.
type ProjectCreate struct {
	Name        string
	Description string
	ManagerID   string
	MemberIDs   []string
}

// ProjectUpdate is the inbound shape for project updates. Name and
// Description always apply; nil ManagerID and MemberIDs mean "leave
// unchanged", a non-nil MemberIDs replaces the whole member set.
type ProjectUpdate struct {
	Name        string
	Description string
	ManagerID   *string
	MemberIDs   *[]string
}

// ProjectView is a project read result with its task count.
type ProjectView struct {
	Project   domain.Project
	TaskCount int
}

// ProjectService is the project mutation pipeline.
type ProjectService struct {
	deps
	activities *activity.Service
}

// NewProjectService constructs the project pipeline.
func NewProjectService(store storage.Store, activities *activity.Service, broadcaster Broadcaster, clock func() time.Time, newID func() (string, error)) *ProjectService {
	return &ProjectService{
		deps:       newDeps(store, broadcaster, clock, newID),
		activities: activities,
	}
}

func (s *ProjectService) getProject(ctx context.Context, projectID string) (domain.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, notFoundOr(err, "project not found")
	}
	return project, nil
}

// List returns every project for admins and otherwise only projects the
// actor owns or is a member of.
func (s *ProjectService) List(ctx context.Context, actor domain.User) ([]domain.Project, error) {
	if actor.IsAdmin() {
		return s.store.ListProjects(ctx)
	}
	return s.store.ListProjectsAccessibleTo(ctx, actor.ID)
}

// Get returns one project and its task count after a view-permission check.
func (s *ProjectService) Get(ctx context.Context, actor domain.User, projectID string) (ProjectView, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	if err := policy.EvaluateProject(actor, policy.ProjectActionView, project).Err(); err != nil {
		return ProjectView{}, err
	}
	count, err := s.store.CountTasksByProject(ctx, projectID)
	if err != nil {
		return ProjectView{}, err
	}
	return ProjectView{Project: project, TaskCount: count}, nil
}

// Create persists a new project owned by the actor, with its creation
// audit record.
func (s *ProjectService) Create(ctx context.Context, actor domain.User, req ProjectCreate) (domain.Project, error) {
	if err := policy.CanCreateProject(actor).Err(); err != nil {
		return domain.Project{}, err
	}

	managerID := actor.ID
	if req.ManagerID != "" {
		manager, err := s.store.GetUser(ctx, req.ManagerID)
		if err != nil {
			return domain.Project{}, notFoundOr(err, "manager not found")
		}
		if err := policy.CanAssignManager(manager).Err(); err != nil {
			return domain.Project{}, err
		}
		managerID = manager.ID
	}

	memberIDs, err := s.resolveMembers(ctx, req.MemberIDs)
	if err != nil {
		return domain.Project{}, err
	}

	projectID, err := s.newID()
	if err != nil {
		return domain.Project{}, err
	}
	now := s.clock().UTC()
	project := domain.Project{
		ID:          projectID,
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     actor.ID,
		ManagerID:   managerID,
		MemberIDs:   memberIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	record, err := s.activities.NewRecord(domain.ActivityProjectCreated,
		actor.FullName+" created project: "+project.Name, actor.ID, "", project.ID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.store.SaveProjectWithActivities(ctx, project, []domain.Activity{record}); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// Update applies field changes to a project. Owner-only outside the admin
// role.
func (s *ProjectService) Update(ctx context.Context, actor domain.User, projectID string, req ProjectUpdate) (domain.Project, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := policy.EvaluateProject(actor, policy.ProjectActionUpdate, project).Err(); err != nil {
		return domain.Project{}, err
	}

	project.Name = req.Name
	project.Description = req.Description
	if req.ManagerID != nil && *req.ManagerID != "" {
		manager, err := s.store.GetUser(ctx, *req.ManagerID)
		if err != nil {
			return domain.Project{}, notFoundOr(err, "manager not found")
		}
		if err := policy.CanAssignManager(manager).Err(); err != nil {
			return domain.Project{}, err
		}
		project.ManagerID = manager.ID
	}
	if req.MemberIDs != nil {
		memberIDs, err := s.resolveMembers(ctx, *req.MemberIDs)
		if err != nil {
			return domain.Project{}, err
		}
		project.MemberIDs = memberIDs
	}
	project.UpdatedAt = s.clock().UTC()

	record, err := s.activities.NewRecord(domain.ActivityProjectUpdated,
		actor.FullName+" updated project: "+project.Name, actor.ID, "", project.ID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.store.SaveProjectWithActivities(ctx, project, []domain.Activity{record}); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// Delete removes a project. Tasks in the project are detached, not
// deleted; prior audit rows keep existing with their project reference
// cleared, and the delete activity itself carries no project reference.
func (s *ProjectService) Delete(ctx context.Context, actor domain.User, projectID string) error {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := policy.EvaluateProject(actor, policy.ProjectActionDelete, project).Err(); err != nil {
		return err
	}

	record, err := s.activities.NewRecord(domain.ActivityProjectDeleted,
		actor.FullName+" deleted project: "+project.Name, actor.ID, "", "")
	if err != nil {
		return err
	}
	if err := s.store.DeleteProjectWithActivity(ctx, projectID, record); err != nil {
		return notFoundOr(err, "project not found")
	}
	return nil
}

// AddMember adds a user to the project's member set. Owner-only outside
// the admin role; adding an existing member is a no-op on the set.
func (s *ProjectService) AddMember(ctx context.Context, actor domain.User, projectID, userID string) (domain.Project, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := policy.EvaluateProject(actor, policy.ProjectActionManageMembers, project).Err(); err != nil {
		return domain.Project{}, err
	}
	member, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.Project{}, notFoundOr(err, "user not found")
	}

	if !project.HasMember(member.ID) {
		project.MemberIDs = append(project.MemberIDs, member.ID)
	}
	project.UpdatedAt = s.clock().UTC()

	record, err := s.activities.NewRecord(domain.ActivityMemberAdded,
		actor.FullName+" added "+member.FullName+" to project: "+project.Name,
		actor.ID, "", project.ID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.store.SaveProjectWithActivities(ctx, project, []domain.Activity{record}); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// RemoveMember removes a user from the project's member set. Owner-only
// outside the admin role.
func (s *ProjectService) RemoveMember(ctx context.Context, actor domain.User, projectID, userID string) (domain.Project, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := policy.EvaluateProject(actor, policy.ProjectActionManageMembers, project).Err(); err != nil {
		return domain.Project{}, err
	}
	member, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.Project{}, notFoundOr(err, "user not found")
	}

	memberIDs := project.MemberIDs[:0:0]
	for _, id := range project.MemberIDs {
		if id != member.ID {
			memberIDs = append(memberIDs, id)
		}
	}
	project.MemberIDs = memberIDs
	project.UpdatedAt = s.clock().UTC()

	record, err := s.activities.NewRecord(domain.ActivityMemberRemoved,
		actor.FullName+" removed "+member.FullName+" from project: "+project.Name,
		actor.ID, "", project.ID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := s.store.SaveProjectWithActivities(ctx, project, []domain.Activity{record}); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

// resolveMembers checks every member id against the user directory and
// deduplicates while preserving order.
func (s *ProjectService) resolveMembers(ctx context.Context, memberIDs []string) ([]string, error) {
	resolved := make([]string, 0, len(memberIDs))
	seen := make(map[string]bool, len(memberIDs))
	for _, memberID := range memberIDs {
		if seen[memberID] {
			continue
		}
		member, err := s.store.GetUser(ctx, memberID)
		if err != nil {
			return nil, notFoundOr(err, "user not found")
		}
		seen[member.ID] = true
		resolved = append(resolved, member.ID)
	}
	return resolved, nil
}
