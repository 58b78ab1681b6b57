package user

import (
	"context"
	"fmt"
	"strings"

	"travyy/internal/logger"
	"travyy/internal/models"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UserStats(ctx context.Context) (*models.UserStats, error)
	UpdateUserStatus(ctx context.Context, id string, status models.UserStatus) error
}

// Service backs the admin user management screens.
type Service struct {
	store  Store
	logger *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

func (s *Service) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return s.store.ListUsers(ctx, filter)
}

func (s *Service) Guides(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	filter.Role = string(models.RoleGuide)
	return s.store.ListUsers(ctx, filter)
}

func (s *Service) Stats(ctx context.Context) (*models.UserStats, error) {
	return s.store.UserStats(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// UpdateStatus changes an account's status. Admins cannot lock themselves out.
func (s *Service) UpdateStatus(ctx context.Context, id string, status string, actorID string) (*models.User, error) {
	next := models.UserStatus(strings.ToLower(strings.TrimSpace(status)))
	switch next {
	case models.UserActive, models.UserInactive, models.UserBanned:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if id == actorID && next != models.UserActive {
		return nil, fmt.Errorf("%w: cannot deactivate your own account", ErrInvalidInput)
	}

	if err := s.store.UpdateUserStatus(ctx, id, next); err != nil {
		return nil, err
	}
	s.logger.Info("USER", fmt.Sprintf("User %s status set to %s by %s", id, next, actorID))
	return s.store.GetUserByID(ctx, id)
}
