// Package auth registers users, checks credentials, and identifies the
// signed-in user on each request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/validation"
	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type Service struct {
	users    Users
	tokens   *Tokens
	validate *validatorv10.Validate
	logger   *zap.Logger
}

func NewService(users Users, tokens *Tokens, validate *validatorv10.Validate, logger *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, validate: validate, logger: logger}
}

// Register validates the form and creates the user. Validation failures are
// returned as validator errors; a taken name as database.ErrUsernameTaken.
func (s *Service) Register(ctx context.Context, req validation.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)

	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, req.Username, hash)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login checks credentials and returns a signed token for the user.
func (s *Service) Login(ctx context.Context, req validation.LoginRequest) (*models.User, string, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *Service) Tokens() *Tokens {
	return s.tokens
}
