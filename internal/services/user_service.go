package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zgai/chatlibrary/internal/auth"
	"github.com/zgai/chatlibrary/internal/models"
	pgrepo "github.com/zgai/chatlibrary/internal/repositories/postgres"
	"github.com/zgai/chatlibrary/internal/utils"
)

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	// Login verifies the credentials and returns the user and a bearer token.
	Login(ctx context.Context, username, password string) (*models.User, string, error)
	Get(ctx context.Context, id string) (*models.User, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
}

type userService struct {
	users  pgrepo.UserRepository
	issuer *auth.TokenIssuer
}

func NewUserService(users pgrepo.UserRepository, issuer *auth.TokenIssuer) UserService {
	return &userService{users: users, issuer: issuer}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "UserService.Register"

	if username == "" || password == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "username and password are required", nil)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, utils.E(utils.CodeConflict, op, "username already exists", nil)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to check username", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	return u, nil
}

func (s *userService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	const op = "UserService.Login"

	if username == "" || password == "" {
		return nil, "", utils.E(utils.CodeInvalidArgument, op, "username and password are required", nil)
	}

	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, "", utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, "", utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}

	now := time.Now().UTC()
	u.LastLoginAt = &now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to record login", err)
	}

	token, err := s.issuer.Issue(u.ID, u.Username)
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "failed to issue token", err)
	}
	return u, token, nil
}

func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	const op = "UserService.Get"

	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	return u, nil
}

func (s *userService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	const op = "UserService.ChangePassword"

	if newPassword == "" {
		return utils.E(utils.CodeInvalidArgument, op, "new password is required", nil)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := utils.CheckPassword(u.PasswordHash, oldPassword); err != nil {
		return utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update password", err)
	}
	return nil
}
