package service

import (
	"context"

	"github.com/stacklight/identity-server-go/internal/audit"
	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/repository"
)

// UserService covers the admin-facing account management operations.
type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	users, err := s.userRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return users, nil
}

// UpdateRole grants or revokes the admin role. The owner's role is
// fixed at creation and can never change.
func (s *UserService) UpdateRole(ctx context.Context, id int64, isAdmin bool) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsOwner && !isAdmin {
		return apperrors.OwnerImmutable()
	}
	if user.IsAdmin == isAdmin {
		return nil
	}
	if err := s.userRepo.UpdateRole(ctx, id, isAdmin); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventRoleChange,
		Email:  user.Email,
		UserID: user.ID,
		Details: map[string]interface{}{
			"is_admin": isAdmin,
		},
	})

	return nil
}

// UpdateActive enables or disables an account. Disabling takes effect
// at the next token verification or refresh; the owner cannot be
// disabled.
func (s *UserService) UpdateActive(ctx context.Context, id int64, active bool) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsOwner && !active {
		return apperrors.OwnerImmutable()
	}
	if user.Active == active {
		return nil
	}
	if err := s.userRepo.UpdateActive(ctx, id, active); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventActiveChange,
		Email:  user.Email,
		UserID: user.ID,
		Details: map[string]interface{}{
			"active": active,
		},
	})

	return nil
}
