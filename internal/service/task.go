package service

import (
	"context"
	"time"

	"github.com/taskdeck/taskdeck/internal/activity"
	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
	"github.com/taskdeck/taskdeck/internal/notification"
	"github.com/taskdeck/taskdeck/internal/policy"
	"github.com/taskdeck/taskdeck/internal/realtime"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// TaskCreate is the inbound shape for task creation. Status and Priority
// default to TODO and MEDIUM when empty; an empty AssignedToID defaults the
// assignee to the actor.
type TaskCreate struct {
	Title        string
	Description  string
	Status       string
	Priority     string
	DueDate      *time.Time
	ProjectID    string
	AssignedToID string
}

// TaskUpdate is the inbound shape for task updates. Nil pointers mean
// "leave unchanged"; an empty Title is also treated as unchanged.
type TaskUpdate struct {
	Title        string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ProjectID    *string
	AssignedToID *string
}

// TaskEvent is the realtime payload published on the task streams.
type TaskEvent struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"taskId"`
	ProjectID string    `json:"projectId,omitempty"`
	Message   string    `json:"message"`
	Data      *TaskData `json:"data"`
}

// TaskData is the post-mutation task representation carried by TaskEvent.
// Deletes publish a nil Data.
type TaskData struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ProjectID    string     `json:"projectId,omitempty"`
	CreatedByID  string     `json:"createdById"`
	AssignedToID string     `json:"assignedToId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func taskData(task domain.Task) *TaskData {
	return &TaskData{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       string(task.Status),
		Priority:     string(task.Priority),
		DueDate:      task.DueDate,
		ProjectID:    task.ProjectID,
		CreatedByID:  task.CreatedByID,
		AssignedToID: task.AssignedToID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// TaskService is the task mutation pipeline.
type TaskService struct {
	deps
	activities    *activity.Service
	notifications *notification.Dispatcher
}

// NewTaskService constructs the task pipeline.
func NewTaskService(store storage.Store, activities *activity.Service, notifications *notification.Dispatcher, broadcaster Broadcaster, clock func() time.Time, newID func() (string, error)) *TaskService {
	return &TaskService{
		deps:          newDeps(store, broadcaster, clock, newID),
		activities:    activities,
		notifications: notifications,
	}
}

// loadTask fetches a task and, when it has one, its project. A dangling
// project reference resolves to a nil project rather than an error.
func (s *TaskService) loadTask(ctx context.Context, taskID string) (domain.Task, *domain.Project, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, nil, notFoundOr(err, "task not found")
	}
	project, err := s.loadProject(ctx, task.ProjectID)
	if err != nil && apperrors.GetCode(err) != apperrors.CodeNotFound {
		return domain.Task{}, nil, err
	}
	return task, project, nil
}

func (s *TaskService) loadProject(ctx context.Context, projectID string) (*domain.Project, error) {
	if projectID == "" {
		return nil, nil
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	return &project, nil
}

// List returns every task for admins and otherwise only tasks the actor
// created or is assigned to.
func (s *TaskService) List(ctx context.Context, actor domain.User) ([]domain.Task, error) {
	if actor.IsAdmin() {
		return s.store.ListTasks(ctx)
	}
	return s.store.ListTasksAccessibleTo(ctx, actor.ID)
}

// ListByProject returns a project's tasks. The project owner and admins see
// every task; members see only tasks they created or are assigned to.
func (s *TaskService) ListByProject(ctx context.Context, actor domain.User, projectID string) ([]domain.Task, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "project not found")
	}
	if err := policy.EvaluateProject(actor, policy.ProjectActionView, *project).Err(); err != nil {
		return nil, err
	}
	if actor.IsAdmin() || project.OwnerID == actor.ID {
		return s.store.ListTasksByProject(ctx, projectID)
	}
	return s.store.ListTasksByProjectAccessibleTo(ctx, projectID, actor.ID)
}

// Get returns one task after a view-permission check.
func (s *TaskService) Get(ctx context.Context, actor domain.User, taskID string) (domain.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.EvaluateTask(actor, policy.TaskActionView, task, project).Err(); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// Create validates and persists a new task with its creation audit record,
// then notifies an explicit assignee and broadcasts the creation.
func (s *TaskService) Create(ctx context.Context, actor domain.User, req TaskCreate) (domain.Task, error) {
	status := domain.TaskStatusTodo
	if req.Status != "" {
		parsed, err := domain.ParseTaskStatus(req.Status)
		if err != nil {
			return domain.Task{}, err
		}
		status = parsed
	}
	priority := domain.TaskPriorityMedium
	if req.Priority != "" {
		parsed, err := domain.ParseTaskPriority(req.Priority)
		if err != nil {
			return domain.Task{}, err
		}
		priority = parsed
	}

	project, err := s.loadProject(ctx, req.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if project != nil {
		if err := policy.EvaluateProject(actor, policy.ProjectActionView, *project).Err(); err != nil {
			return domain.Task{}, err
		}
	}

	assignee := actor
	if req.AssignedToID != "" {
		assignee, err = s.store.GetUser(ctx, req.AssignedToID)
		if err != nil {
			return domain.Task{}, notFoundOr(err, "user not found")
		}
		if err := policy.CanAssignTask(project, assignee).Err(); err != nil {
			return domain.Task{}, err
		}
	}

	taskID, err := s.newID()
	if err != nil {
		return domain.Task{}, err
	}
	now := s.clock().UTC()
	task := domain.Task{
		ID:           taskID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       status,
		Priority:     priority,
		DueDate:      req.DueDate,
		ProjectID:    req.ProjectID,
		CreatedByID:  actor.ID,
		AssignedToID: assignee.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.activities.NewRecord(domain.ActivityTaskCreated,
		actor.FullName+" created task: "+task.Title, actor.ID, task.ID, task.ProjectID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.store.SaveTaskWithActivities(ctx, task, []domain.Activity{created}); err != nil {
		return domain.Task{}, err
	}

	if assignee.ID != actor.ID {
		s.notifyAssigned(ctx, assignee, actor, task, "New Task Assigned")
	}
	s.broadcastTask("CREATED", task, taskData(task))
	return task, nil
}

// Update applies a field diff to a task. Every changed field contributes
// one change entry, the whole diff yields at most one update activity,
// completing the task adds a distinct completion activity, and assignee
// notifications follow the change set.
func (s *TaskService) Update(ctx context.Context, actor domain.User, taskID string, req TaskUpdate) (domain.Task, error) {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := policy.EvaluateTask(actor, policy.TaskActionUpdate, task, project).Err(); err != nil {
		return domain.Task{}, err
	}

	var d diff
	completed := false

	if req.Title != "" && req.Title != task.Title {
		d.record(fieldTitle, task.Title, req.Title, "Title changed. ")
		task.Title = req.Title
	}
	if req.Description != nil && *req.Description != task.Description {
		d.record(fieldDescription, task.Description, *req.Description, "Description updated. ")
		task.Description = *req.Description
	}
	if req.Priority != nil {
		priority, err := domain.ParseTaskPriority(*req.Priority)
		if err != nil {
			return domain.Task{}, err
		}
		if priority != task.Priority {
			d.record(fieldPriority, string(task.Priority), string(priority),
				"Priority changed to "+string(priority)+". ")
			task.Priority = priority
		}
	}
	if req.Status != nil {
		status, err := domain.ParseTaskStatus(*req.Status)
		if err != nil {
			return domain.Task{}, err
		}
		if status != task.Status {
			d.record(fieldStatus, string(task.Status), string(status),
				"Status changed from "+string(task.Status)+" to "+string(status)+". ")
			task.Status = status
			completed = status == domain.TaskStatusCompleted
		}
	}
	if req.DueDate != nil && !equalTimes(task.DueDate, req.DueDate) {
		d.record(fieldDueDate, formatTime(task.DueDate), formatTime(req.DueDate), "Due date updated. ")
		task.DueDate = req.DueDate
	}
	if req.ProjectID != nil && *req.ProjectID != "" && *req.ProjectID != task.ProjectID {
		moved, err := s.loadProject(ctx, *req.ProjectID)
		if err != nil {
			return domain.Task{}, err
		}
		if err := policy.EvaluateProject(actor, policy.ProjectActionView, *moved).Err(); err != nil {
			return domain.Task{}, err
		}
		d.record(fieldProject, task.ProjectID, moved.ID, "Moved to project: "+moved.Name+". ")
		task.ProjectID = moved.ID
		project = moved
	}

	var newAssignee *domain.User
	if req.AssignedToID != nil && *req.AssignedToID != "" {
		assignee, err := s.store.GetUser(ctx, *req.AssignedToID)
		if err != nil {
			return domain.Task{}, notFoundOr(err, "user not found")
		}
		if err := policy.CanAssignTask(project, assignee).Err(); err != nil {
			return domain.Task{}, err
		}
		if assignee.ID != task.AssignedToID {
			d.record(fieldAssignee, task.AssignedToID, assignee.ID,
				"Reassigned to "+assignee.FullName+". ")
			task.AssignedToID = assignee.ID
			newAssignee = &assignee
		}
	}

	task.UpdatedAt = s.clock().UTC()

	var records []domain.Activity
	if completed {
		record, err := s.activities.NewRecord(domain.ActivityTaskCompleted,
			actor.FullName+" completed task: "+task.Title, actor.ID, task.ID, task.ProjectID)
		if err != nil {
			return domain.Task{}, err
		}
		records = append(records, record)
	}
	if !d.empty() {
		record, err := s.activities.NewRecord(domain.ActivityTaskUpdated,
			actor.FullName+" updated task: "+task.Title+" - "+d.summary(),
			actor.ID, task.ID, task.ProjectID)
		if err != nil {
			return domain.Task{}, err
		}
		records = append(records, record)
	}
	if err := s.store.SaveTaskWithActivities(ctx, task, records); err != nil {
		return domain.Task{}, err
	}

	if newAssignee != nil && newAssignee.ID != actor.ID {
		s.notifyAssigned(ctx, *newAssignee, actor, task, "Task Assigned")
	}
	if d.beyond(fieldAssignee) && task.AssignedToID != "" && task.AssignedToID != actor.ID {
		if _, err := s.notifications.Notify(ctx, task.AssignedToID, "Task Updated",
			actor.FullName+" updated task: "+task.Title,
			domain.NotificationTaskUpdated, task.ID, task.ProjectID); err != nil {
			logSideEffect("notify task update", err)
		}
	}
	s.broadcastTask("UPDATED", task, taskData(task))
	return task, nil
}

// Delete removes a task. The delete activity and the reference-clearing on
// prior audit rows commit atomically with the delete; the broadcast carries
// no payload.
func (s *TaskService) Delete(ctx context.Context, actor domain.User, taskID string) error {
	task, project, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := policy.EvaluateTask(actor, policy.TaskActionDelete, task, project).Err(); err != nil {
		return err
	}

	record, err := s.activities.NewRecord(domain.ActivityTaskDeleted,
		actor.FullName+" deleted task: "+task.Title, actor.ID, "", task.ProjectID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTaskWithActivity(ctx, taskID, record); err != nil {
		return notFoundOr(err, "task not found")
	}

	s.broadcastTask("DELETED", task, nil)
	return nil
}

func (s *TaskService) notifyAssigned(ctx context.Context, assignee, actor domain.User, task domain.Task, title string) {
	if _, err := s.notifications.Notify(ctx, assignee.ID, title,
		actor.FullName+" assigned you a task: "+task.Title,
		domain.NotificationTaskAssigned, task.ID, task.ProjectID); err != nil {
		logSideEffect("notify assignment", err)
	}
}

// broadcastTask publishes one event per mutation: on the project stream
// when the task has a project, and always on the global stream.
func (s *TaskService) broadcastTask(eventType string, task domain.Task, data *TaskData) {
	event := TaskEvent{
		Type:      eventType,
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		Message:   eventType + " task: " + task.Title,
		Data:      data,
	}
	if task.ProjectID != "" {
		s.publish(realtime.ProjectTasks(task.ProjectID), event)
	}
	s.publish(realtime.TopicTasks, event)
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
