package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// MemoryStore keeps users and assessments in process memory. It mirrors the
// Postgres repository's semantics and backs STORE=memory and the tests.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[int64]models.User
	assessments []models.Assessment
	nextUserID  int64
	now         func() time.Time
}

// NewMemoryStore initializes an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]models.User),
		now:   time.Now,
	}
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// CreateUser stores a user, enforcing unique username and email
func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return fmt.Errorf("failed to create user: %w", models.ErrUserExists)
		}
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = s.now().UTC()
	s.users[user.ID] = *user
	return nil
}

// FindUserByEmail retrieves a user by email
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

// FindUserByID retrieves a user by id
func (s *MemoryStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, models.ErrUserNotFound
}

// CreateAssessment appends an assessment and assigns its id and creation time
func (s *MemoryStore) CreateAssessment(_ context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = int64(len(s.assessments) + 1)
	a.CreatedAt = s.now().UTC()
	s.assessments = append(s.assessments, *a)
	return nil
}

// GetAssessment retrieves an assessment by id
func (s *MemoryStore) GetAssessment(_ context.Context, id int64) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.assessments)) {
		return nil, models.ErrNotFound
	}
	a := s.assessments[id-1]
	return &a, nil
}

// ListAssessmentsByUser returns a user's assessments in insertion order
func (s *MemoryStore) ListAssessmentsByUser(_ context.Context, userID int64) ([]models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := []models.Assessment{}
	for _, a := range s.assessments {
		if a.UserID == userID {
			list = append(list, a)
		}
	}
	return list, nil
}

// ScanAssessments streams matching assessments with their owner's username.
// It sees the assessments present at call time; fn runs outside the lock.
func (s *MemoryStore) ScanAssessments(ctx context.Context, filter string, fn func(models.SearchResult) error) error {
	s.mu.RLock()
	// Records are never modified once appended, so the prefix is stable.
	assessments := s.assessments
	usernames := make(map[int64]string, len(s.users))
	for id, u := range s.users {
		usernames[id] = u.Username
	}
	s.mu.RUnlock()

	for _, a := range assessments {
		if err := ctx.Err(); err != nil {
			return err
		}
		username := usernames[a.UserID]
		if !matches(filter, username, a) {
			continue
		}
		if err := fn(models.SearchResult{Assessment: a, Username: username}); err != nil {
			return err
		}
	}
	return nil
}

// SearchAssessments collects the result of ScanAssessments
func (s *MemoryStore) SearchAssessments(ctx context.Context, filter string) ([]models.SearchResult, error) {
	return collect(ctx, s, filter)
}

func matches(filter, username string, a models.Assessment) bool {
	if filter == "" {
		return true
	}
	return (username != "" && strings.Contains(username, filter)) ||
		strings.Contains(string(a.LoanStatus), filter) ||
		strings.Contains(string(a.RiskLevel), filter)
}
