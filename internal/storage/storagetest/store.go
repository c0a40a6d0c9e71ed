// Package storagetest provides an in-memory storage.Store for tests.
// Ordering mirrors the SQLite implementation: newest first, with insertion
// order breaking timestamp ties.
package storagetest

import (
	"context"
	"sort"
	"sync"

	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// Store is an in-memory storage.Store. The zero value is not usable; call
// New.
type Store struct {
	mu            sync.Mutex
	seq           int
	users         map[string]domain.User
	projects      map[string]domain.Project
	tasks         map[string]domain.Task
	comments      map[string]domain.Comment
	activities    []storedActivity
	notifications []storedNotification

	// FailSaveTask forces the next task save to fail, for pipeline
	// failure-semantics tests.
	FailSaveTask error
	// FailPutNotification forces notification writes to fail.
	FailPutNotification error
}

type storedActivity struct {
	seq    int
	record domain.Activity
}

type storedNotification struct {
	seq    int
	record domain.Notification
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		projects: make(map[string]domain.Project),
		tasks:    make(map[string]domain.Task),
		comments: make(map[string]domain.Comment),
	}
}

// Close implements storage.Store.
func (s *Store) Close() error { return nil }

// GetUser implements storage.UserStore.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, storage.ErrNotFound
	}
	return user, nil
}

// ListUsers implements storage.UserStore.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// ListUsersExcept implements storage.UserStore.
func (s *Store) ListUsersExcept(ctx context.Context, id string) ([]domain.User, error) {
	all, _ := s.ListUsers(ctx)
	users := make([]domain.User, 0, len(all))
	for _, user := range all {
		if user.ID != id {
			users = append(users, user)
		}
	}
	return users, nil
}

// SaveUser implements storage.UserStore.
func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// GetProject implements storage.ProjectStore.
func (s *Store) GetProject(ctx context.Context, id string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return domain.Project{}, storage.ErrNotFound
	}
	return project, nil
}

// ListProjects implements storage.ProjectStore.
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	projects := make([]domain.Project, 0, len(s.projects))
	for _, project := range s.projects {
		projects = append(projects, project)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// ListProjectsAccessibleTo implements storage.ProjectStore.
func (s *Store) ListProjectsAccessibleTo(ctx context.Context, userID string) ([]domain.Project, error) {
	all, _ := s.ListProjects(ctx)
	projects := make([]domain.Project, 0, len(all))
	for _, project := range all {
		if project.CanAccess(userID) {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

// SaveProjectWithActivities implements storage.ProjectStore.
func (s *Store) SaveProjectWithActivities(ctx context.Context, project domain.Project, activities []domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = project
	s.appendActivitiesLocked(activities)
	return nil
}

// DeleteProjectWithActivity implements storage.ProjectStore.
func (s *Store) DeleteProjectWithActivity(ctx context.Context, projectID string, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.projects, projectID)
	for id, task := range s.tasks {
		if task.ProjectID == projectID {
			task.ProjectID = ""
			s.tasks[id] = task
		}
	}
	for i := range s.activities {
		if s.activities[i].record.ProjectID == projectID {
			s.activities[i].record.ProjectID = ""
		}
	}
	for i := range s.notifications {
		if s.notifications[i].record.ProjectID == projectID {
			s.notifications[i].record.ProjectID = ""
		}
	}
	s.appendActivitiesLocked([]domain.Activity{activity})
	return nil
}

// GetTask implements storage.TaskStore.
func (s *Store) GetTask(ctx context.Context, id string) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, storage.ErrNotFound
	}
	return task, nil
}

// ListTasks implements storage.TaskStore.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

// ListTasksAccessibleTo implements storage.TaskStore.
func (s *Store) ListTasksAccessibleTo(ctx context.Context, userID string) ([]domain.Task, error) {
	all, _ := s.ListTasks(ctx)
	tasks := make([]domain.Task, 0, len(all))
	for _, task := range all {
		if task.CreatedByID == userID || task.AssignedToID == userID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// ListTasksByProject implements storage.TaskStore.
func (s *Store) ListTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	all, _ := s.ListTasks(ctx)
	tasks := make([]domain.Task, 0, len(all))
	for _, task := range all {
		if task.ProjectID == projectID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// ListTasksByProjectAccessibleTo implements storage.TaskStore.
func (s *Store) ListTasksByProjectAccessibleTo(ctx context.Context, projectID, userID string) ([]domain.Task, error) {
	byProject, _ := s.ListTasksByProject(ctx, projectID)
	tasks := make([]domain.Task, 0, len(byProject))
	for _, task := range byProject {
		if task.CreatedByID == userID || task.AssignedToID == userID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// CountTasksByProject implements storage.TaskStore.
func (s *Store) CountTasksByProject(ctx context.Context, projectID string) (int, error) {
	tasks, _ := s.ListTasksByProject(ctx, projectID)
	return len(tasks), nil
}

// SaveTaskWithActivities implements storage.TaskStore.
func (s *Store) SaveTaskWithActivities(ctx context.Context, task domain.Task, activities []domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaveTask != nil {
		return s.FailSaveTask
	}
	s.tasks[task.ID] = task
	s.appendActivitiesLocked(activities)
	return nil
}

// DeleteTaskWithActivity implements storage.TaskStore.
func (s *Store) DeleteTaskWithActivity(ctx context.Context, taskID string, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[taskID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.tasks, taskID)
	for i := range s.activities {
		if s.activities[i].record.TaskID == taskID {
			s.activities[i].record.TaskID = ""
		}
	}
	for i := range s.notifications {
		if s.notifications[i].record.TaskID == taskID {
			s.notifications[i].record.TaskID = ""
		}
	}
	for id, comment := range s.comments {
		if comment.TaskID == taskID {
			delete(s.comments, id)
		}
	}
	s.appendActivitiesLocked([]domain.Activity{activity})
	return nil
}

// GetComment implements storage.CommentStore.
func (s *Store) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return domain.Comment{}, storage.ErrNotFound
	}
	return comment, nil
}

// ListCommentsByTask implements storage.CommentStore.
func (s *Store) ListCommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comments := make([]domain.Comment, 0)
	for _, comment := range s.comments {
		if comment.TaskID == taskID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

// SaveCommentWithActivity implements storage.CommentStore.
func (s *Store) SaveCommentWithActivity(ctx context.Context, comment domain.Comment, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	s.appendActivitiesLocked([]domain.Activity{activity})
	return nil
}

// DeleteComment implements storage.CommentStore.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

// AppendActivity implements storage.ActivityStore.
func (s *Store) AppendActivity(ctx context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendActivitiesLocked([]domain.Activity{activity})
	return nil
}

func (s *Store) appendActivitiesLocked(activities []domain.Activity) {
	for _, activity := range activities {
		s.seq++
		s.activities = append(s.activities, storedActivity{seq: s.seq, record: activity})
	}
}

func (s *Store) sortedActivitiesLocked() []domain.Activity {
	stored := make([]storedActivity, len(s.activities))
	copy(stored, s.activities)
	sort.Slice(stored, func(i, j int) bool {
		if !stored[i].record.CreatedAt.Equal(stored[j].record.CreatedAt) {
			return stored[i].record.CreatedAt.After(stored[j].record.CreatedAt)
		}
		return stored[i].seq > stored[j].seq
	})
	records := make([]domain.Activity, 0, len(stored))
	for _, item := range stored {
		records = append(records, item.record)
	}
	return records
}

// ListRecentActivities implements storage.ActivityStore.
func (s *Store) ListRecentActivities(ctx context.Context, limit int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.sortedActivitiesLocked()
	if limit >= 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// ListActivitiesByTask implements storage.ActivityStore.
func (s *Store) ListActivitiesByTask(ctx context.Context, taskID string) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]domain.Activity, 0)
	for _, record := range s.sortedActivitiesLocked() {
		if record.TaskID == taskID && taskID != "" {
			records = append(records, record)
		}
	}
	return records, nil
}

// ListActivitiesByProject implements storage.ActivityStore.
func (s *Store) ListActivitiesByProject(ctx context.Context, projectID string) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]domain.Activity, 0)
	for _, record := range s.sortedActivitiesLocked() {
		if record.ProjectID == projectID && projectID != "" {
			records = append(records, record)
		}
	}
	return records, nil
}

// ListActivitiesByUser implements storage.ActivityStore.
func (s *Store) ListActivitiesByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]domain.Activity, 0)
	for _, record := range s.sortedActivitiesLocked() {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	if limit >= 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// ClearTaskRefs implements storage.ActivityStore.
func (s *Store) ClearTaskRefs(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.activities {
		if s.activities[i].record.TaskID == taskID {
			s.activities[i].record.TaskID = ""
		}
	}
	return nil
}

// GetNotification implements storage.NotificationStore.
func (s *Store) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.notifications {
		if item.record.ID == id {
			return item.record, nil
		}
	}
	return domain.Notification{}, storage.ErrNotFound
}

// PutNotification implements storage.NotificationStore.
func (s *Store) PutNotification(ctx context.Context, notification domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPutNotification != nil {
		return s.FailPutNotification
	}
	s.seq++
	s.notifications = append(s.notifications, storedNotification{seq: s.seq, record: notification})
	return nil
}

func (s *Store) sortedNotificationsLocked(userID string, unreadOnly bool) []domain.Notification {
	stored := make([]storedNotification, 0, len(s.notifications))
	for _, item := range s.notifications {
		if item.record.UserID != userID {
			continue
		}
		if unreadOnly && item.record.Read {
			continue
		}
		stored = append(stored, item)
	}
	sort.Slice(stored, func(i, j int) bool {
		if !stored[i].record.CreatedAt.Equal(stored[j].record.CreatedAt) {
			return stored[i].record.CreatedAt.After(stored[j].record.CreatedAt)
		}
		return stored[i].seq > stored[j].seq
	})
	records := make([]domain.Notification, 0, len(stored))
	for _, item := range stored {
		records = append(records, item.record)
	}
	return records
}

// ListNotificationsByUser implements storage.NotificationStore.
func (s *Store) ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedNotificationsLocked(userID, false), nil
}

// ListUnreadNotificationsByUser implements storage.NotificationStore.
func (s *Store) ListUnreadNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedNotificationsLocked(userID, true), nil
}

// CountUnreadNotificationsByUser implements storage.NotificationStore.
func (s *Store) CountUnreadNotificationsByUser(ctx context.Context, userID string) (int, error) {
	unread, _ := s.ListUnreadNotificationsByUser(ctx, userID)
	return len(unread), nil
}

// MarkNotificationRead implements storage.NotificationStore.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].record.ID == id {
			s.notifications[i].record.Read = true
			return nil
		}
	}
	return storage.ErrNotFound
}

var _ storage.Store = (*Store)(nil)
