package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/auth"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordMismatch is returned when sign-up confirmation differs
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrEmailTaken is returned when an account already uses the email
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidCredentials is returned for an unknown email or wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AuthService handles operator accounts and sessions
type AuthService struct {
	users  repository.UserRepository
	issuer *auth.Issuer
	logger *zap.SugaredLogger
	cost   int
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepository, issuer *auth.Issuer, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{users: users, issuer: issuer, logger: logger, cost: bcrypt.DefaultCost}
}

// SignUp creates an account and opens a session for it
func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.Session, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Infow("User signed up", "user_id", user.ID)
	return s.session(user)
}

// Login verifies credentials and opens a session
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *AuthService) session(user *models.User) (*models.Session, error) {
	token, expires, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &models.Session{Token: token, ExpiresAt: expires, User: *user}, nil
}
