package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

type fakeUserRepo struct {
	users   map[string]domain.User
	saveErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Save(_ context.Context, user domain.User) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return &u, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, username, password string, role domain.Role) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := domain.User{ID: "u-" + username, Username: username, PasswordHash: string(hash), Role: role}
	repo.users[u.ID] = u
	return u
}

func TestLoginIssuesToken(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)

	token, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	user, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestLoginRecordsLastLogin(t *testing.T) {
	repo := newFakeUserRepo()
	u := seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	_, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, at, repo.users[u.ID].LastLogin)
}

func TestLoginMasksUnknownUser(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)

	_, wrongPass := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "nope"})
	_, noUser := svc.Login(context.Background(), domain.Credentials{Username: "ghost", Password: "nope"})

	// Both failure modes must look identical to the caller.
	assert.Equal(t, ErrInvalidCredentials, wrongPass)
	assert.Equal(t, ErrInvalidCredentials, noUser)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)

	for i := 0; i < maxAttempts; i++ {
		_, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "wrong"})
		assert.Equal(t, ErrInvalidCredentials, err)
	}

	// Even the correct password is refused while locked out.
	_, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	assert.Equal(t, ErrTooManyAttempts, err)
}

func TestLoginLockoutExpiresWithWindow(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := base
	svc.now = func() time.Time { return current }

	for i := 0; i < maxAttempts; i++ {
		svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "wrong"})
	}
	_, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	assert.Equal(t, ErrTooManyAttempts, err)

	current = base.Add(lockoutWindow + time.Minute)
	token, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLockoutDoesNotAffectOtherUsers(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	seedUser(t, repo, "viewer", "viewpass", domain.RoleViewer)
	svc := NewService(repo)

	for i := 0; i < maxAttempts; i++ {
		svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "wrong"})
	}

	token, err := svc.Login(context.Background(), domain.Credentials{Username: "viewer", Password: "viewpass"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSuccessfulLoginResetsAttempts(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)

	for i := 0; i < maxAttempts-1; i++ {
		svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "wrong"})
	}
	_, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	require.NoError(t, err)

	// Counter restarted: a further burst of failures is tolerated again.
	for i := 0; i < maxAttempts-1; i++ {
		_, err = svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "wrong"})
		assert.Equal(t, ErrInvalidCredentials, err)
	}
}

func TestValidateTokenRejectsUnknown(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	user, err := svc.ValidateToken(context.Background(), "no-such-token")
	assert.Equal(t, ErrInvalidSession, err)
	assert.Nil(t, user)
}

func TestValidateTokenExpiry(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current := base
	svc.now = func() time.Time { return current }

	token, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	require.NoError(t, err)

	current = base.Add(sessionTTL + time.Minute)
	user, err := svc.ValidateToken(context.Background(), token)
	assert.Equal(t, ErrSessionExpired, err)
	assert.Nil(t, user)

	// The expired session is gone: a second check reports it unknown.
	_, err = svc.ValidateToken(context.Background(), token)
	assert.Equal(t, ErrInvalidSession, err)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "admin", "secret123", domain.RoleAdmin)
	svc := NewService(repo)

	token, err := svc.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	_, err = svc.ValidateToken(context.Background(), token)
	assert.Equal(t, ErrInvalidSession, err)

	// Logging out twice is harmless.
	assert.NoError(t, svc.Logout(context.Background(), token))
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	err := svc.CreateUser(context.Background(), domain.User{Username: "newuser", Role: domain.RoleViewer}, "password")
	require.NoError(t, err)

	saved, err := repo.GetByUsername(context.Background(), "newuser")
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.NotEqual(t, "password", saved.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte("password")))
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestCreateUserRejectsInvalid(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	err := svc.CreateUser(context.Background(), domain.User{Username: "", Role: domain.RoleViewer}, "pw")
	assert.ErrorIs(t, err, domain.ErrEmptyUsername)

	err = svc.CreateUser(context.Background(), domain.User{Username: "x", Role: domain.Role("root")}, "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestCreateUserKeepsProvidedIdentity(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	err := svc.CreateUser(context.Background(), domain.User{
		ID: "fixed-id", Username: "ops", Role: domain.RoleOperator, CreatedAt: created,
	}, "pw")
	require.NoError(t, err)

	saved, err := repo.GetByID(context.Background(), "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "ops", saved.Username)
	assert.Equal(t, created, saved.CreatedAt)
}
