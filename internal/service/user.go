package service

import (
	"context"
	"time"

	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/policy"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// UserService serves the user directory and the role mutation.
type UserService struct {
	deps
}

// NewUserService constructs the user service.
func NewUserService(store storage.Store, clock func() time.Time) *UserService {
	return &UserService{deps: newDeps(store, nil, clock, nil)}
}

// List returns the full user directory. Denied to the member role.
func (s *UserService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := policy.CanListUsers(actor).Err(); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// TeamMembers returns every user except the actor, for assignment pickers.
func (s *UserService) TeamMembers(ctx context.Context, actor domain.User) ([]domain.User, error) {
	return s.store.ListUsersExcept(ctx, actor.ID)
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, notFoundOr(err, "user not found")
	}
	return user, nil
}

// UpdateRole changes a user's role. Admin-only, never on the actor
// themself; the role name is validated before anything is loaded.
func (s *UserService) UpdateRole(ctx context.Context, actor domain.User, userID, roleName string) (domain.User, error) {
	role, err := domain.ParseRole(roleName)
	if err != nil {
		return domain.User{}, err
	}
	target, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, notFoundOr(err, "user not found")
	}
	if err := policy.CanChangeRole(actor, target).Err(); err != nil {
		return domain.User{}, err
	}

	target.Role = role
	if err := s.store.SaveUser(ctx, target); err != nil {
		return domain.User{}, err
	}
	return target, nil
}
