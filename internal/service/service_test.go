package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/activity"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/notification"
	"github.com/taskdeck/taskdeck/internal/service"
	"github.com/taskdeck/taskdeck/internal/storage/storagetest"
)

type broadcastEvent struct {
	topic   string
	payload any
}

type capturingBroadcaster struct {
	events []broadcastEvent
}

func (b *capturingBroadcaster) Publish(topic string, payload any) {
	b.events = append(b.events, broadcastEvent{topic: topic, payload: payload})
}

func (b *capturingBroadcaster) onTopic(topic string) []any {
	var payloads []any
	for _, event := range b.events {
		if event.topic == topic {
			payloads = append(payloads, event.payload)
		}
	}
	return payloads
}

type fixture struct {
	store         *storagetest.Store
	bcast         *capturingBroadcaster
	tasks         *service.TaskService
	projects      *service.ProjectService
	comments      *service.CommentService
	users         *service.UserService
	notifications *notification.Dispatcher

	admin   domain.User
	manager domain.User
	bob     domain.User
	carol   domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storagetest.New()
	bcast := &capturingBroadcaster{}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	n := 0
	newID := func() (string, error) {
		n++
		return fmt.Sprintf("id-%d", n), nil
	}

	activities := activity.NewService(store, clock, newID)
	notifications := notification.NewDispatcher(store, bcast, clock, newID)

	f := &fixture{
		store:         store,
		bcast:         bcast,
		tasks:         service.NewTaskService(store, activities, notifications, bcast, clock, newID),
		projects:      service.NewProjectService(store, activities, bcast, clock, newID),
		comments:      service.NewCommentService(store, activities, notifications, bcast, clock, newID),
		users:         service.NewUserService(store, clock),
		notifications: notifications,
		admin:         domain.User{ID: "admin", Username: "alice", FullName: "Alice Adams", Role: domain.RoleAdmin},
		manager:       domain.User{ID: "manager", Username: "mara", FullName: "Mara Marsh", Role: domain.RoleManager},
		bob:           domain.User{ID: "bob", Username: "bob", FullName: "Bob Barker", Role: domain.RoleMember},
		carol:         domain.User{ID: "carol", Username: "carol", FullName: "Carol Chase", Role: domain.RoleMember},
	}
	ctx := context.Background()
	for _, user := range []domain.User{f.admin, f.manager, f.bob, f.carol} {
		if err := store.SaveUser(ctx, user); err != nil {
			t.Fatalf("seed user %s: %v", user.ID, err)
		}
	}
	return f
}

// seedProject creates a project owned by the manager with bob and carol as
// members, bypassing the pipeline.
func (f *fixture) seedProject(t *testing.T, id string) domain.Project {
	t.Helper()
	project := domain.Project{
		ID:        id,
		Name:      "Apollo",
		OwnerID:   f.manager.ID,
		ManagerID: f.manager.ID,
		MemberIDs: []string{f.bob.ID, f.carol.ID},
		CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := f.store.SaveProjectWithActivities(context.Background(), project, nil); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func (f *fixture) notificationsFor(t *testing.T, userID string) []domain.Notification {
	t.Helper()
	list, err := f.store.ListNotificationsByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return list
}

func (f *fixture) activitiesByTask(t *testing.T, taskID string) []domain.Activity {
	t.Helper()
	list, err := f.store.ListActivitiesByTask(context.Background(), taskID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	return list
}

func strptr(s string) *string { return &s }
