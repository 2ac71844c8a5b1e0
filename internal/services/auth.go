package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/security"

	"go.uber.org/zap"
)

// AuthResult is returned by both register and login.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
}

type authService struct {
	users  repositories.UserRepository
	hasher security.PasswordHasher
	tokens security.TokenIssuer
	logger *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repositories.UserRepository, hasher security.PasswordHasher, tokens security.TokenIssuer, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger.Named("AuthService"),
	}
}

func (s *authService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	log := s.logger.With(zap.String("username", username))

	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		log.Info("Registration rejected, username taken")
		monitoring.ObserveRegistration(monitoring.OutcomeConflict)
		return nil, ErrUsernameTaken
	case !errors.Is(err, repositories.ErrNotFound):
		monitoring.ObserveRegistration(monitoring.OutcomeError)
		return nil, fmt.Errorf("look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		monitoring.ObserveRegistration(monitoring.OutcomeError)
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			log.Info("Registration lost race on username")
			monitoring.ObserveRegistration(monitoring.OutcomeConflict)
			return nil, ErrUsernameTaken
		}
		monitoring.ObserveRegistration(monitoring.OutcomeError)
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		monitoring.ObserveRegistration(monitoring.OutcomeError)
		return nil, err
	}

	log.Info("User registered", zap.String("userID", user.ID.String()))
	monitoring.ObserveRegistration(monitoring.OutcomeSuccess)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	log := s.logger.With(zap.String("username", username))

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Spend the same bcrypt work as a real comparison.
			s.hasher.Verify(password, s.dummyDigest())
			log.Debug("Login failed, unknown username")
			monitoring.ObserveLogin(monitoring.OutcomeInvalid)
			return nil, ErrInvalidCredentials
		}
		monitoring.ObserveLogin(monitoring.OutcomeError)
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		log.Debug("Login failed, wrong password")
		monitoring.ObserveLogin(monitoring.OutcomeInvalid)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		monitoring.ObserveLogin(monitoring.OutcomeError)
		return nil, err
	}

	log.Info("User logged in", zap.String("userID", user.ID.String()))
	monitoring.ObserveLogin(monitoring.OutcomeSuccess)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *authService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("task-tracker-placeholder")
		if err != nil {
			s.logger.Warn("Failed to prepare placeholder hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
