// Package auth verifies dashboard credentials and manages in-memory
// session tokens. Sessions do not survive a restart, which is acceptable
// for a single-host monitor: a restart simply logs everyone out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
)

const (
	sessionTTL    = 24 * time.Hour
	maxAttempts   = 5
	lockoutWindow = 15 * time.Minute
)

// Session tracks one issued token.
type Session struct {
	UserID    string
	Role      domain.Role
	ExpiresAt time.Time
}

type attemptWindow struct {
	count   int
	firstAt time.Time
}

// Service implements ports.AuthService against the user repository.
// Failed logins are throttled per username: after maxAttempts failures
// inside lockoutWindow the account refuses logins until the window lapses.
type Service struct {
	repo ports.UserRepository

	mu       sync.RWMutex
	sessions map[string]Session
	attempts map[string]attemptWindow

	now func() time.Time
}

var _ ports.AuthService = (*Service)(nil)

func NewService(repo ports.UserRepository) *Service {
	return &Service{
		repo:     repo,
		sessions: make(map[string]Session),
		attempts: make(map[string]attemptWindow),
		now:      time.Now,
	}
}

// Login validates credentials and returns a session token. Unknown users
// and wrong passwords fail identically so usernames cannot be enumerated.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	if s.locked(creds.Username) {
		return "", ErrTooManyAttempts
	}

	user, err := s.repo.GetByUsername(ctx, creds.Username)
	if err != nil {
		s.recordFailure(creds.Username)
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		s.recordFailure(creds.Username)
		return "", ErrInvalidCredentials
	}

	s.clearFailures(creds.Username)

	user.LastLogin = s.now()
	if err := s.repo.Save(ctx, *user); err != nil {
		slog.Warn("could not record last login", "user", user.Username, "error", err)
	}

	return s.issue(user), nil
}

// ValidateToken resolves a token to its user. Expired sessions are
// removed on access rather than swept by a background task.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.Logout(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return user, nil
}

// Logout invalidates a token. Unknown tokens are not an error.
func (s *Service) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// CreateUser provisions an account, storing a bcrypt hash of the password.
func (s *Service) CreateUser(ctx context.Context, user domain.User, password string) error {
	if err := user.Validate(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	return s.repo.Save(ctx, user)
}

func (s *Service) issue(user *domain.User) string {
	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = Session{
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: s.now().Add(sessionTTL),
	}
	s.mu.Unlock()
	return token
}

func (s *Service) locked(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.attempts[username]
	if !ok {
		return false
	}
	if s.now().Sub(w.firstAt) > lockoutWindow {
		return false
	}
	return w.count >= maxAttempts
}

func (s *Service) recordFailure(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.attempts[username]
	if w.count == 0 || s.now().Sub(w.firstAt) > lockoutWindow {
		w = attemptWindow{firstAt: s.now()}
	}
	w.count++
	s.attempts[username] = w
}

func (s *Service) clearFailures(username string) {
	s.mu.Lock()
	delete(s.attempts, username)
	s.mu.Unlock()
}
