package service

import (
	"context"
	"strings"

	"github.com/citytransit/transit-service/internal/auth"
	"github.com/citytransit/transit-service/internal/domain"
	"github.com/citytransit/transit-service/internal/repository"
	apperrors "github.com/citytransit/transit-service/pkg/util"
)

// UserService handles profile and admin account management.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// UserDependencies bundles repositories for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	BcryptCost int
}

// UserUpdateInput carries profile fields a user may change.
type UserUpdateInput struct {
	FullName *string
}

// UserStats summarizes the account base for the admin dashboard.
type UserStats struct {
	Total        int64
	CountsByRole map[domain.UserRole]int64
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, bcryptCost: deps.BcryptCost}
}

// UpdateProfile applies self-service profile changes.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, apperrors.NewValidationError("full name must not be empty", nil)
		}
		user.FullName = name
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password incorrect")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// Deactivate disables the user's own account. The last active admin may
// not deactivate itself.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, false)
}

// ListUsers returns a user page, optionally filtered by a search term over
// email and full name.
func (s *UserService) ListUsers(ctx context.Context, term string, limit, offset int) ([]domain.User, int64, error) {
	term = strings.TrimSpace(term)
	if term != "" {
		return s.users.Search(ctx, term, limit, offset)
	}
	return s.users.List(ctx, limit, offset)
}

// GetUser returns any account by id, for admins.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateRole promotes or demotes an account. Demoting the last active
// admin is rejected.
func (s *UserService) UpdateRole(ctx context.Context, id string, role domain.UserRole) (*domain.User, error) {
	if role != domain.UserRoleUser && role != domain.UserRoleAdmin {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.UserRoleAdmin && role != domain.UserRoleAdmin && user.Active {
		admins, err := s.users.CountActiveAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, apperrors.NewConflict("cannot demote the last active admin", nil)
		}
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateStatus activates or deactivates an account, for admins.
func (s *UserService) UpdateStatus(ctx context.Context, id string, active bool) (*domain.User, error) {
	if err := s.setActive(ctx, id, active); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// Stats returns account totals for the admin dashboard.
func (s *UserService) Stats(ctx context.Context) (*UserStats, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	return &UserStats{Total: total, CountsByRole: byRole}, nil
}

func (s *UserService) setActive(ctx context.Context, id string, active bool) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Active == active {
		return nil
	}
	if !active && user.Role == domain.UserRoleAdmin {
		admins, err := s.users.CountActiveAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperrors.NewConflict("cannot deactivate the last active admin", nil)
		}
	}
	user.Active = active
	return s.users.Update(ctx, user)
}
