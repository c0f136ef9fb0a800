package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/haasonsaas/parley/pkg/models"
)

// UserStore persists user accounts and verifies passwords.
type UserStore interface {
	Create(ctx context.Context, email, password, name string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type userRecord struct {
	user         models.User
	passwordHash []byte
}

// MemoryUserStore keeps user accounts in memory with bcrypt password
// hashes.
type MemoryUserStore struct {
	mu      sync.Mutex
	byID    map[string]*userRecord
	byEmail map[string]*userRecord
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*userRecord),
		byEmail: make(map[string]*userRecord),
	}
}

func (s *MemoryUserStore) Create(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}

	now := time.Now().UTC()
	rec := &userRecord{
		user: models.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      strings.TrimSpace(name),
			CreatedAt: now,
			UpdatedAt: now,
		},
		passwordHash: hash,
	}
	s.byID[rec.user.ID] = rec
	s.byEmail[email] = rec

	u := rec.user
	return &u, nil
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := rec.user
	return &u, nil
}

func (s *MemoryUserStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	s.mu.Lock()
	rec, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	s.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	u := rec.user
	return &u, nil
}
