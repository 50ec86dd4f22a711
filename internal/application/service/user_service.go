package service

import (
	"context"
	"fmt"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/access"
	"github.com/garyjia/perdin/internal/domain/entity"
)

// UserService administers user accounts
type UserService interface {
	List(ctx context.Context, caller access.Identity) ([]*entity.User, error)
	UpdateRole(ctx context.Context, caller access.Identity, userID int64, role string) (*entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	policy   *access.Policy
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, policy *access.Policy, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		policy:   policy,
		logger:   logger,
	}
}

func (s *userServiceImpl) List(ctx context.Context, caller access.Identity) ([]*entity.User, error) {
	if err := authorize(s.policy, caller, access.CapManageUsers); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

// UpdateRole assigns one of the roles known to the policy
func (s *userServiceImpl) UpdateRole(ctx context.Context, caller access.Identity, userID int64, role string) (*entity.User, error) {
	if err := authorize(s.policy, caller, access.CapManageUsers); err != nil {
		return nil, err
	}
	if !s.policy.HasRole(role) {
		return nil, fieldError("role", fmt.Sprintf("must be one of %v", s.policy.Roles()))
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User role updated", "user_id", userID, "role", role, "actor_id", caller.UserID)
	return user, nil
}
