package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/auth"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

type UserDBLayer interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// TokenIssuer signs a bearer token for a user and returns its lifetime in
// seconds.
type TokenIssuer interface {
	Issue(user *models.User) (string, int, error)
}

type UserService struct {
	DB         UserDBLayer
	Tokens     TokenIssuer
	BcryptCost int
	Logger     *logger.Logger
	Now        func() time.Time
}

func NewUserService(db UserDBLayer, tokens TokenIssuer, bcryptCost int, log *logger.Logger) *UserService {
	return &UserService{DB: db, Tokens: tokens, BcryptCost: bcryptCost, Logger: log, Now: time.Now}
}

// Login exchanges credentials for a bearer token. Unknown users, wrong
// passwords and inactive accounts all fail with ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	user, err := s.DB.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("unknown user %q", username))
		return nil, apperr.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("rejected credentials for %q", username))
		return nil, apperr.ErrInvalidCredentials
	}

	token, expiresIn, err := s.Tokens.Issue(user)
	if err != nil {
		s.Logger.Error("AUTH", fmt.Sprintf("Failed to issue token for %s: %v", user.ID, err))
		return nil, err
	}
	s.Logger.Info("AUTH", fmt.Sprintf("User %s logged in", user.Username))
	return &models.TokenResponse{AccessToken: token, ExpiresIn: expiresIn, TokenType: "Bearer", User: user}, nil
}

// Me returns the stored record of the caller.
func (s *UserService) Me(ctx context.Context, identity models.Identity) (*models.User, error) {
	return s.DB.GetUserByID(ctx, identity.ID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.DB.ListUsers(ctx)
}

// CreateUser adds an operator. The role defaults to staff.
func (s *UserService) CreateUser(ctx context.Context, actor models.Identity, in models.NewUserInput) (*models.User, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	taken, err := s.DB.UsernameOrEmailTaken(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Validation("username or email already in use")
	}

	hash, err := auth.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleStaff
	}
	now := s.Now().UTC().Truncate(time.Second)
	user := &models.User{
		ID:           utils.NewID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		s.Logger.Error("DATABASE", fmt.Sprintf("Failed to create user %s: %v", in.Username, err))
		return nil, err
	}
	s.Logger.LogDatabase("INSERT", "users", fmt.Sprintf("%s (%s) created by %s", user.Username, user.Role, actor.Username))
	return user, nil
}

// UpdateUser applies patch. A new password is hashed before it is stored.
func (s *UserService) UpdateUser(ctx context.Context, actor models.Identity, id string, patch models.UserPatch) (*models.User, error) {
	if err := utils.Validate(patch); err != nil {
		return nil, err
	}
	user, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil && *patch.Email != user.Email {
		taken, err := s.DB.EmailTaken(ctx, *patch.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Validation("email already in use")
		}
		user.Email = *patch.Email
	}
	if patch.Password != nil {
		if user.PasswordHash, err = auth.HashPassword(*patch.Password, s.BcryptCost); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.IsActive != nil {
		if !*patch.IsActive && actor.ID == id {
			return nil, apperr.Validation("you cannot deactivate your own account")
		}
		user.IsActive = *patch.IsActive
	}

	user.UpdatedAt = s.Now().UTC().Truncate(time.Second)
	if err := s.DB.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.Logger.LogDatabase("UPDATE", "users", fmt.Sprintf("%s updated by %s", user.Username, actor.Username))
	return user, nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// ChangePassword lets the caller replace their own password.
func (s *UserService) ChangePassword(ctx context.Context, identity models.Identity, req ChangePasswordRequest) error {
	if err := utils.Validate(req); err != nil {
		return err
	}
	user, err := s.DB.GetUserByID(ctx, identity.ID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return apperr.ErrInvalidCredentials
	}
	if user.PasswordHash, err = auth.HashPassword(req.NewPassword, s.BcryptCost); err != nil {
		return err
	}
	user.UpdatedAt = s.Now().UTC().Truncate(time.Second)
	if err := s.DB.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.Logger.LogSecurity("PASSWORD_CHANGED", user.Username)
	return nil
}
