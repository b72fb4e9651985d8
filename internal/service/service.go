package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/loan-assessment/internal/config"
	"github.com/Dan9191/loan-assessment/internal/metrics"
	"github.com/Dan9191/loan-assessment/internal/models"
	"github.com/Dan9191/loan-assessment/internal/repository"
	"github.com/Dan9191/loan-assessment/internal/scoring"
)

// ErrInvalidCredentials is returned by Login for unknown users and bad passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles business logic
type Service struct {
	repo    repository.Store
	scorer  scoring.Scorer
	log     *logrus.Logger
	config  *config.Config
	metrics *metrics.Metrics
}

// NewService initializes a new service
func NewService(repo repository.Store, scorer scoring.Scorer, log *logrus.Logger, cfg *config.Config, m *metrics.Metrics) *Service {
	return &Service{repo: repo, scorer: scorer, log: log, config: cfg, metrics: m}
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, &models.ValidationError{Field: "username, email, password", Reason: "are required"}
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	// Generate JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// FindUser returns the user with the given id
func (s *Service) FindUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// Ping checks the store
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
