package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/taskdeck/taskdeck/internal/activity"
	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/notification"
	"github.com/taskdeck/taskdeck/internal/platform/otel"
	"github.com/taskdeck/taskdeck/internal/realtime"
	"github.com/taskdeck/taskdeck/internal/service"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
)

// Run opens the store, composes the engine, and serves HTTP until the
// context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("TASKDECK_JWT_SECRET is required")
	}

	shutdownTracing, err := otel.Setup(ctx, "taskdeck")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("server: shutdown tracing: %v", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	hub := realtime.NewHub()
	broadcaster := realtime.NewBroadcaster(hub)
	activities := activity.NewService(store, nil, nil)
	notifications := notification.NewDispatcher(store, broadcaster, nil, nil)
	authenticator := auth.NewAuthenticator([]byte(cfg.JWTSecret), store, nil)

	a := &api{
		auth:          authenticator,
		tasks:         service.NewTaskService(store, activities, notifications, broadcaster, nil, nil),
		projects:      service.NewProjectService(store, activities, broadcaster, nil, nil),
		comments:      service.NewCommentService(store, activities, notifications, broadcaster, nil, nil),
		users:         service.NewUserService(store, nil),
		notifications: notifications,
		activities:    activities,
	}

	mux := http.NewServeMux()
	a.routes(mux)
	mux.Handle("GET /ws", realtime.NewHandler(hub, authenticator))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
