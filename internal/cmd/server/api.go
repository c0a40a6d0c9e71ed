package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc/codes"

	"github.com/taskdeck/taskdeck/internal/activity"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/domain"
	apperrors "github.com/taskdeck/taskdeck/internal/errors"
	"github.com/taskdeck/taskdeck/internal/notification"
	"github.com/taskdeck/taskdeck/internal/service"
)

// api is the thin JSON surface over the pipelines. It carries no domain
// logic: decode, resolve the actor, call the pipeline, encode.
type api struct {
	auth          *auth.Authenticator
	tasks         *service.TaskService
	projects      *service.ProjectService
	comments      *service.CommentService
	users         *service.UserService
	notifications *notification.Dispatcher
	activities    *activity.Service
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", a.withActor(a.listTasks))
	mux.HandleFunc("POST /api/tasks", a.withActor(a.createTask))
	mux.HandleFunc("GET /api/tasks/{id}", a.withActor(a.getTask))
	mux.HandleFunc("PUT /api/tasks/{id}", a.withActor(a.updateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", a.withActor(a.deleteTask))
	mux.HandleFunc("GET /api/tasks/{id}/comments", a.withActor(a.listComments))
	mux.HandleFunc("POST /api/tasks/{id}/comments", a.withActor(a.createComment))
	mux.HandleFunc("GET /api/tasks/{id}/activities", a.withActor(a.taskActivities))
	mux.HandleFunc("DELETE /api/comments/{id}", a.withActor(a.deleteComment))

	mux.HandleFunc("GET /api/projects", a.withActor(a.listProjects))
	mux.HandleFunc("POST /api/projects", a.withActor(a.createProject))
	mux.HandleFunc("GET /api/projects/{id}", a.withActor(a.getProject))
	mux.HandleFunc("PUT /api/projects/{id}", a.withActor(a.updateProject))
	mux.HandleFunc("DELETE /api/projects/{id}", a.withActor(a.deleteProject))
	mux.HandleFunc("GET /api/projects/{id}/tasks", a.withActor(a.listProjectTasks))
	mux.HandleFunc("POST /api/projects/{id}/members/{userId}", a.withActor(a.addMember))
	mux.HandleFunc("DELETE /api/projects/{id}/members/{userId}", a.withActor(a.removeMember))
	mux.HandleFunc("GET /api/projects/{id}/activities", a.withActor(a.projectActivities))

	mux.HandleFunc("GET /api/users", a.withActor(a.listUsers))
	mux.HandleFunc("GET /api/users/team", a.withActor(a.teamMembers))
	mux.HandleFunc("GET /api/users/{id}", a.withActor(a.getUser))
	mux.HandleFunc("PUT /api/users/{id}/role", a.withActor(a.updateRole))

	mux.HandleFunc("GET /api/notifications", a.withActor(a.listNotifications))
	mux.HandleFunc("GET /api/notifications/unread", a.withActor(a.listUnread))
	mux.HandleFunc("GET /api/notifications/unread/count", a.withActor(a.countUnread))
	mux.HandleFunc("PUT /api/notifications/{id}/read", a.withActor(a.markRead))
	mux.HandleFunc("PUT /api/notifications/read-all", a.withActor(a.markAllRead))

	mux.HandleFunc("GET /api/activities/recent", a.withActor(a.recentActivities))
}

// withActor resolves the bearer token to a user and wraps the handler in a
// span.
func (a *api) withActor(handler func(http.ResponseWriter, *http.Request, domain.User)) http.HandlerFunc {
	tracer := otel.Tracer("taskdeck/server")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		r = r.WithContext(ctx)

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		actor, err := a.auth.ResolveUser(ctx, token)
		if err != nil {
			writeError(w, err)
			return
		}
		handler(w, r, actor)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "an unexpected error occurred"

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch appErr.Code.GRPCCode() {
		case codes.InvalidArgument:
			status = http.StatusBadRequest
		case codes.PermissionDenied:
			status = http.StatusForbidden
		case codes.NotFound:
			status = http.StatusNotFound
		}
	}
	if status == http.StatusInternalServerError {
		log.Printf("server: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

type taskRequest struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	Priority     *string    `json:"priority"`
	DueDate      *time.Time `json:"dueDate"`
	ProjectID    *string    `json:"projectId"`
	AssignedToID *string    `json:"assignedToId"`
}

func (a *api) listTasks(w http.ResponseWriter, r *http.Request, actor domain.User) {
	tasks, err := a.tasks.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *api) createTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	create := service.TaskCreate{Title: req.Title, DueDate: req.DueDate}
	if req.Description != nil {
		create.Description = *req.Description
	}
	if req.Status != nil {
		create.Status = *req.Status
	}
	if req.Priority != nil {
		create.Priority = *req.Priority
	}
	if req.ProjectID != nil {
		create.ProjectID = *req.ProjectID
	}
	if req.AssignedToID != nil {
		create.AssignedToID = *req.AssignedToID
	}
	task, err := a.tasks.Create(r.Context(), actor, create)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *api) getTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	task, err := a.tasks.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *api) updateTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := a.tasks.Update(r.Context(), actor, r.PathValue("id"), service.TaskUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ProjectID:    req.ProjectID,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *api) deleteTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := a.tasks.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *api) listComments(w http.ResponseWriter, r *http.Request, _ domain.User) {
	comments, err := a.comments.ListByTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (a *api) createComment(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var req struct {
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	comment, err := a.comments.Create(r.Context(), actor, r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (a *api) deleteComment(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := a.comments.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type projectRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ManagerID   *string   `json:"managerId"`
	MemberIDs   *[]string `json:"memberIds"`
}

func (a *api) listProjects(w http.ResponseWriter, r *http.Request, actor domain.User) {
	projects, err := a.projects.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (a *api) createProject(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	create := service.ProjectCreate{Name: req.Name, Description: req.Description}
	if req.ManagerID != nil {
		create.ManagerID = *req.ManagerID
	}
	if req.MemberIDs != nil {
		create.MemberIDs = *req.MemberIDs
	}
	project, err := a.projects.Create(r.Context(), actor, create)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (a *api) getProject(w http.ResponseWriter, r *http.Request, actor domain.User) {
	view, err := a.projects.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *api) updateProject(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	project, err := a.projects.Update(r.Context(), actor, r.PathValue("id"), service.ProjectUpdate{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (a *api) deleteProject(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := a.projects.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *api) listProjectTasks(w http.ResponseWriter, r *http.Request, actor domain.User) {
	tasks, err := a.tasks.ListByProject(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (a *api) addMember(w http.ResponseWriter, r *http.Request, actor domain.User) {
	project, err := a.projects.AddMember(r.Context(), actor, r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (a *api) removeMember(w http.ResponseWriter, r *http.Request, actor domain.User) {
	project, err := a.projects.RemoveMember(r.Context(), actor, r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (a *api) listUsers(w http.ResponseWriter, r *http.Request, actor domain.User) {
	users, err := a.users.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *api) teamMembers(w http.ResponseWriter, r *http.Request, actor domain.User) {
	users, err := a.users.TeamMembers(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request, _ domain.User) {
	user, err := a.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *api) updateRole(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var req struct {
		Role string `json:"role"`
	}
	if !decode(w, r, &req) {
		return
	}
	user, err := a.users.UpdateRole(r.Context(), actor, r.PathValue("id"), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *api) listNotifications(w http.ResponseWriter, r *http.Request, actor domain.User) {
	list, err := a.notifications.ListAll(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) listUnread(w http.ResponseWriter, r *http.Request, actor domain.User) {
	list, err := a.notifications.ListUnread(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) countUnread(w http.ResponseWriter, r *http.Request, actor domain.User) {
	count, err := a.notifications.CountUnread(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (a *api) markRead(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := a.notifications.MarkRead(r.Context(), r.PathValue("id"), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *api) markAllRead(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := a.notifications.MarkAllRead(r.Context(), actor); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (a *api) recentActivities(w http.ResponseWriter, r *http.Request, _ domain.User) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}
	records, err := a.activities.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *api) taskActivities(w http.ResponseWriter, r *http.Request, _ domain.User) {
	records, err := a.activities.ByTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *api) projectActivities(w http.ResponseWriter, r *http.Request, _ domain.User) {
	records, err := a.activities.ByProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
