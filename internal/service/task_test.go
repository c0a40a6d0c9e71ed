package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
	"github.com/taskdeck/taskdeck/internal/service"
)

func TestCreateTaskDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.AssignedToID != f.bob.ID {
		t.Errorf("AssignedToID = %q, want creator %q", task.AssignedToID, f.bob.ID)
	}
	if task.Status != domain.TaskStatusTodo {
		t.Errorf("Status = %q, want TODO", task.Status)
	}
	if task.Priority != domain.TaskPriorityMedium {
		t.Errorf("Priority = %q, want MEDIUM", task.Priority)
	}

	records := f.activitiesByTask(t, task.ID)
	if len(records) != 1 {
		t.Fatalf("got %d activities, want 1", len(records))
	}
	if records[0].Type != domain.ActivityTaskCreated {
		t.Errorf("activity type = %q, want TASK_CREATED", records[0].Type)
	}
	if records[0].Description != "Bob Barker created task: Ship it" {
		t.Errorf("description = %q", records[0].Description)
	}
	if len(f.notificationsFor(t, f.bob.ID)) != 0 {
		t.Error("self-assigned create produced a notification")
	}
}

func TestCreateTaskWithAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := f.seedProject(t, "proj-1")

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{
		Title:        "Ship it",
		ProjectID:    project.ID,
		AssignedToID: f.carol.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	records := f.activitiesByTask(t, task.ID)
	if len(records) != 1 || records[0].Type != domain.ActivityTaskCreated {
		t.Fatalf("activities = %+v, want exactly one TASK_CREATED", records)
	}

	inbox := f.notificationsFor(t, f.carol.ID)
	if len(inbox) != 1 {
		t.Fatalf("assignee got %d notifications, want 1", len(inbox))
	}
	if inbox[0].Type != domain.NotificationTaskAssigned || inbox[0].Read {
		t.Errorf("notification = %+v, want unread TASK_ASSIGNED", inbox[0])
	}
	if inbox[0].Message != "Bob Barker assigned you a task: Ship it" {
		t.Errorf("message = %q", inbox[0].Message)
	}

	projectEvents := f.bcast.onTopic("project/proj-1/tasks")
	globalEvents := f.bcast.onTopic("tasks")
	if len(projectEvents) != 1 || len(globalEvents) != 1 {
		t.Fatalf("broadcasts: project=%d global=%d, want 1 each", len(projectEvents), len(globalEvents))
	}
	event := globalEvents[0].(service.TaskEvent)
	if event.Type != "CREATED" || event.Data == nil || event.Data.ID != task.ID {
		t.Errorf("event = %+v", event)
	}
}

func TestCreateTaskAssigneeMustBeProjectMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "proj-1")

	outsider := domain.User{ID: "eve", Username: "eve", FullName: "Eve Easton", Role: domain.RoleMember}
	if err := f.store.SaveUser(ctx, outsider); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	_, err := f.tasks.Create(ctx, f.manager, service.TaskCreate{
		Title:        "Ship it",
		ProjectID:    "proj-1",
		AssignedToID: outsider.ID,
	})
	if apperrors.GetCode(err) != apperrors.CodeAssigneeNotProjectMember {
		t.Fatalf("code = %v, want %v", apperrors.GetCode(err), apperrors.CodeAssigneeNotProjectMember)
	}

	recent, _ := f.store.ListRecentActivities(ctx, 50)
	if len(recent) != 0 || len(f.bcast.events) != 0 {
		t.Error("failed create left side effects behind")
	}
}

func TestCreateTaskInvalidEnums(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "x", Status: "DONE"})
	if apperrors.GetCode(err) != apperrors.CodeTaskStatusInvalid {
		t.Errorf("status code = %v, want %v", apperrors.GetCode(err), apperrors.CodeTaskStatusInvalid)
	}
	_, err = f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "x", Priority: "URGENT"})
	if apperrors.GetCode(err) != apperrors.CodeTaskPriorityInvalid {
		t.Errorf("priority code = %v, want %v", apperrors.GetCode(err), apperrors.CodeTaskPriorityInvalid)
	}
}

func TestUpdateTaskStatusOnlyToCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := f.tasks.Update(ctx, f.bob, task.ID, service.TaskUpdate{
		Status: strptr("COMPLETED"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != domain.TaskStatusCompleted {
		t.Errorf("Status = %q, want COMPLETED", updated.Status)
	}

	records := f.activitiesByTask(t, task.ID)
	// Creation activity plus the update/completion pair.
	if len(records) != 3 {
		t.Fatalf("got %d activities, want 3", len(records))
	}
	types := map[domain.ActivityType]int{}
	for _, record := range records {
		types[record.Type]++
	}
	if types[domain.ActivityTaskUpdated] != 1 || types[domain.ActivityTaskCompleted] != 1 {
		t.Errorf("activity types = %v, want one TASK_UPDATED and one TASK_COMPLETED", types)
	}

	var updatedRecord domain.Activity
	for _, record := range records {
		if record.Type == domain.ActivityTaskUpdated {
			updatedRecord = record
		}
	}
	want := "Bob Barker updated task: Ship it - Status changed from TODO to COMPLETED."
	if updatedRecord.Description != want {
		t.Errorf("description = %q, want %q", updatedRecord.Description, want)
	}
}

func TestUpdateTaskDescriptionOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	project := f.seedProject(t, "proj-1")

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{
		Title:        "Ship it",
		ProjectID:    project.ID,
		AssignedToID: f.carol.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	before := len(f.notificationsFor(t, f.carol.ID))

	_, err = f.tasks.Update(ctx, f.bob, task.ID, service.TaskUpdate{
		Description: strptr("now with docs"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	records := f.activitiesByTask(t, task.ID)
	if len(records) != 2 {
		t.Fatalf("got %d activities, want create + one update", len(records))
	}
	if records[0].Type != domain.ActivityTaskUpdated {
		t.Errorf("newest activity = %q, want TASK_UPDATED", records[0].Type)
	}

	inbox := f.notificationsFor(t, f.carol.ID)
	if len(inbox) != before+1 {
		t.Fatalf("assignee got %d new notifications, want 1", len(inbox)-before)
	}
	if inbox[0].Type != domain.NotificationTaskUpdated {
		t.Errorf("notification type = %q, want TASK_UPDATED", inbox[0].Type)
	}
	if inbox[0].Message != "Bob Barker updated task: Ship it" {
		t.Errorf("message = %q", inbox[0].Message)
	}
}

func TestUpdateTaskReassignmentOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "proj-1")

	task, err := f.tasks.Create(ctx, f.manager, service.TaskCreate{
		Title:     "Ship it",
		ProjectID: "proj-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.tasks.Update(ctx, f.manager, task.ID, service.TaskUpdate{
		AssignedToID: strptr(f.carol.ID),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	inbox := f.notificationsFor(t, f.carol.ID)
	if len(inbox) != 1 {
		t.Fatalf("assignee got %d notifications, want only the assignment one", len(inbox))
	}
	if inbox[0].Type != domain.NotificationTaskAssigned || inbox[0].Title != "Task Assigned" {
		t.Errorf("notification = %+v, want Task Assigned", inbox[0])
	}

	records := f.activitiesByTask(t, task.ID)
	if len(records) != 2 {
		t.Fatalf("got %d activities, want create + update", len(records))
	}
	want := "Mara Marsh updated task: Ship it - Reassigned to Carol Chase."
	if records[0].Description != want {
		t.Errorf("description = %q, want %q", records[0].Description, want)
	}
}

func TestUpdateTaskDiffOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.tasks.Update(ctx, f.bob, task.ID, service.TaskUpdate{
		Title:       "Ship it now",
		Description: strptr("soon"),
		Priority:    strptr("HIGH"),
		Status:      strptr("IN_PROGRESS"),
		DueDate:     &due,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	records := f.activitiesByTask(t, task.ID)
	want := "Bob Barker updated task: Ship it now - " +
		"Title changed. Description updated. Priority changed to HIGH. " +
		"Status changed from TODO to IN_PROGRESS. Due date updated."
	if records[0].Description != want {
		t.Errorf("description = %q\nwant %q", records[0].Description, want)
	}
}

func TestUpdateTaskMoveToProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "proj-1")

	task, err := f.tasks.Create(ctx, f.manager, service.TaskCreate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := f.tasks.Update(ctx, f.manager, task.ID, service.TaskUpdate{
		ProjectID: strptr("proj-1"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ProjectID != "proj-1" {
		t.Errorf("ProjectID = %q, want proj-1", updated.ProjectID)
	}

	records := f.activitiesByTask(t, task.ID)
	want := "Mara Marsh updated task: Ship it - Moved to project: Apollo."
	if records[0].Description != want {
		t.Errorf("description = %q, want %q", records[0].Description, want)
	}

	if len(f.bcast.onTopic("project/proj-1/tasks")) != 1 {
		t.Error("move did not broadcast on the project stream")
	}
}

func TestUpdateTaskNoChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.tasks.Update(ctx, f.bob, task.ID, service.TaskUpdate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	records := f.activitiesByTask(t, task.ID)
	if len(records) != 1 {
		t.Errorf("no-op update appended activities: %d records, want 1", len(records))
	}
	// The broadcast still fires per mutation.
	if len(f.bcast.onTopic("tasks")) != 2 {
		t.Errorf("global broadcasts = %d, want 2", len(f.bcast.onTopic("tasks")))
	}
}

func TestUpdateTaskUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	eventsBefore := len(f.bcast.events)

	_, err = f.tasks.Update(ctx, f.carol, task.ID, service.TaskUpdate{Title: "Hijack"})
	if apperrors.GetCode(err) != apperrors.CodeUnauthorized {
		t.Fatalf("code = %v, want %v", apperrors.GetCode(err), apperrors.CodeUnauthorized)
	}
	if err.Error() != "you don't have permission to update this task" {
		t.Errorf("reason = %q", err.Error())
	}

	got, err := f.tasks.Get(ctx, f.bob, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Ship it" {
		t.Errorf("denied update mutated the task: title %q", got.Title)
	}
	if len(f.bcast.events) != eventsBefore {
		t.Error("denied update broadcast an event")
	}
}

func TestUpdateTaskAdminBypassesRelationships(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.tasks.Update(ctx, f.admin, task.ID, service.TaskUpdate{Title: "Renamed"}); err != nil {
		t.Fatalf("admin update: %v", err)
	}
}

func TestUpdateTaskPersistFailureSkipsSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "proj-1")

	task, err := f.tasks.Create(ctx, f.manager, service.TaskCreate{
		Title: "Ship it", ProjectID: "proj-1", AssignedToID: f.carol.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	inboxBefore := len(f.notificationsFor(t, f.carol.ID))
	eventsBefore := len(f.bcast.events)

	f.store.FailSaveTask = fmt.Errorf("disk full")
	_, err = f.tasks.Update(ctx, f.manager, task.ID, service.TaskUpdate{Title: "Renamed"})
	if err == nil {
		t.Fatal("update succeeded despite store failure")
	}
	if len(f.notificationsFor(t, f.carol.ID)) != inboxBefore {
		t.Error("failed persist still notified the assignee")
	}
	if len(f.bcast.events) != eventsBefore {
		t.Error("failed persist still broadcast")
	}
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "proj-1")

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it", ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.tasks.Update(ctx, f.bob, task.ID, service.TaskUpdate{Title: "Renamed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := f.tasks.Delete(ctx, f.bob, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := f.tasks.Get(ctx, f.bob, task.ID); apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Errorf("Get after delete code = %v, want %v", apperrors.GetCode(err), apperrors.CodeNotFound)
	}

	// Prior audit rows survive with the task reference cleared.
	if records := f.activitiesByTask(t, task.ID); len(records) != 0 {
		t.Errorf("queryByTask(deleted) = %d records, want 0", len(records))
	}
	recent, err := f.store.ListRecentActivities(ctx, 50)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d surviving activities, want create+update+delete", len(recent))
	}
	if recent[0].Type != domain.ActivityTaskDeleted {
		t.Errorf("newest activity = %q, want TASK_DELETED", recent[0].Type)
	}
	for _, record := range recent {
		if record.TaskID != "" {
			t.Errorf("record %s still references the deleted task", record.ID)
		}
	}

	events := f.bcast.onTopic("tasks")
	last := events[len(events)-1].(service.TaskEvent)
	if last.Type != "DELETED" || last.Data != nil {
		t.Errorf("delete event = %+v, want DELETED with nil data", last)
	}
}

func TestDeleteTaskAssigneeCannot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "Ship it", AssignedToID: f.carol.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = f.tasks.Delete(ctx, f.carol, task.ID)
	if apperrors.GetCode(err) != apperrors.CodeUnauthorized {
		t.Fatalf("assignee delete code = %v, want %v", apperrors.GetCode(err), apperrors.CodeUnauthorized)
	}
}

func TestTaskListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProject(t, "proj-1")

	if _, err := f.tasks.Create(ctx, f.bob, service.TaskCreate{Title: "bob's", ProjectID: "proj-1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.tasks.Create(ctx, f.carol, service.TaskCreate{Title: "carol's", ProjectID: "proj-1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := f.tasks.List(ctx, f.admin)
	if err != nil {
		t.Fatalf("List admin: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin sees %d tasks, want 2", len(all))
	}

	mine, err := f.tasks.List(ctx, f.bob)
	if err != nil {
		t.Fatalf("List bob: %v", err)
	}
	if len(mine) != 1 || mine[0].Title != "bob's" {
		t.Errorf("bob sees %+v, want only his task", mine)
	}

	// Project owner sees every project task; a member only their own.
	owned, err := f.tasks.ListByProject(ctx, f.manager, "proj-1")
	if err != nil {
		t.Fatalf("ListByProject owner: %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("owner sees %d project tasks, want 2", len(owned))
	}
	scoped, err := f.tasks.ListByProject(ctx, f.carol, "proj-1")
	if err != nil {
		t.Fatalf("ListByProject member: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Title != "carol's" {
		t.Errorf("carol sees %+v, want only her task", scoped)
	}

	outsider := domain.User{ID: "eve", Role: domain.RoleMember}
	if err := f.store.SaveUser(ctx, outsider); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := f.tasks.ListByProject(ctx, outsider, "proj-1"); apperrors.GetCode(err) != apperrors.CodeUnauthorized {
		t.Errorf("outsider ListByProject code = %v, want %v", apperrors.GetCode(err), apperrors.CodeUnauthorized)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.tasks.Get(context.Background(), f.admin, "missing")
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("code = %v, want %v", apperrors.GetCode(err), apperrors.CodeNotFound)
	}
}
