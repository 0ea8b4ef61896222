package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rosterhub/roster/internal/domain"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	users         map[string]*domain.User
	createUserErr error
	countUsersErr error
	nextID        int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	if m.createUserErr != nil {
		return m.createUserErr
	}
	if _, ok := m.users[user.Username]; ok {
		return ErrUsernameExists
	}
	m.nextID++
	user.ID = "test-user-id"
	m.users[user.Username] = user
	return nil
}

func (m *mockRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) CountUsers(_ context.Context) (int, error) {
	if m.countUsersErr != nil {
		return 0, m.countUsersErr
	}
	return len(m.users), nil
}

// mockAuthenticator implements TokenAuthenticator for testing.
type mockAuthenticator struct {
	generateErr error
	lastUser    *domain.User
}

func (m *mockAuthenticator) GenerateToken(_ context.Context, user *domain.User) (string, error) {
	if m.generateErr != nil {
		return "", m.generateErr
	}
	m.lastUser = user
	return "signed-token", nil
}

func (m *mockAuthenticator) ValidateToken(_ context.Context, _ string) (*domain.TokenClaims, error) {
	return nil, ErrInvalidToken
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegister_CreatesRegularUser(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})

	// Act
	user, err := service.Register(context.Background(), RegisterInput{
		Username: "somchai",
		Password: "password123",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "somchai", user.Username)
	assert.Equal(t, domain.RoleUser, user.Role, "self-registration never grants admin")
	assert.NotEqual(t, "password123", user.PasswordHash, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}

func TestRegister_UsernameAlreadyExists(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["existing"] = &domain.User{Username: "existing"}
	service := NewService(repo, &mockAuthenticator{})

	// Act
	user, err := service.Register(context.Background(), RegisterInput{
		Username: "existing",
		Password: "password123",
	})

	// Assert
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestRegister_DuplicateRaceSurfacesConstraintError(t *testing.T) {
	// Arrange — repository reports the unique violation even though
	// the username lookup saw nothing (concurrent insert).
	repo := newMockRepository()
	repo.createUserErr = ErrUsernameExists
	service := NewService(repo, &mockAuthenticator{})

	// Act
	user, err := service.Register(context.Background(), RegisterInput{
		Username: "somchai",
		Password: "password123",
	})

	// Assert
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestRegister_NormalizesUsername(t *testing.T) {
	// Arrange — same username in decomposed (NFD) and composed (NFC)
	// form must collide.
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})

	_, err := service.Register(context.Background(), RegisterInput{
		Username: "José", // é precomposed
		Password: "password123",
	})
	require.NoError(t, err)

	// Act
	user, err := service.Register(context.Background(), RegisterInput{
		Username: "José", // e + combining acute
		Password: "password123",
	})

	// Assert
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestRegister_CreateUserFails(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.createUserErr = errors.New("database error")
	service := NewService(repo, &mockAuthenticator{})

	// Act
	user, err := service.Register(context.Background(), RegisterInput{
		Username: "somchai",
		Password: "password123",
	})

	// Assert
	assert.Nil(t, user)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameExists)
}

func TestLogin_Succeeds(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["somchai"] = &domain.User{
		ID:           "user-1",
		Username:     "somchai",
		PasswordHash: hashPassword(t, "password123"),
		Role:         domain.RoleAdmin,
	}
	auth := &mockAuthenticator{}
	service := NewService(repo, auth)

	// Act
	user, token, err := service.Login(context.Background(), LoginInput{
		Username: "somchai",
		Password: "password123",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "signed-token", token)
	assert.Equal(t, "user-1", user.ID)
	require.NotNil(t, auth.lastUser)
	assert.Equal(t, domain.RoleAdmin, auth.lastUser.Role, "token carries the role at login time")
}

func TestLogin_WrongPassword(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["somchai"] = &domain.User{
		Username:     "somchai",
		PasswordHash: hashPassword(t, "password123"),
		Role:         domain.RoleUser,
	}
	service := NewService(repo, &mockAuthenticator{})

	// Act
	user, token, err := service.Login(context.Background(), LoginInput{
		Username: "somchai",
		Password: "wrong-password",
	})

	// Assert
	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUsername(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})

	// Act
	user, token, err := service.Login(context.Background(), LoginInput{
		Username: "nobody",
		Password: "password123",
	})

	// Assert — indistinguishable from a wrong password
	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ThrottlesRepeatedAttempts(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["somchai"] = &domain.User{
		Username:     "somchai",
		PasswordHash: hashPassword(t, "password123"),
		Role:         domain.RoleUser,
	}
	service := NewService(repo, &mockAuthenticator{})

	// Act — burn through the burst allowance with bad passwords.
	var lastErr error
	for i := 0; i < loginRateBurst+1; i++ {
		_, _, lastErr = service.Login(context.Background(), LoginInput{
			Username: "somchai",
			Password: "wrong-password",
		})
	}

	// Assert
	assert.ErrorIs(t, lastErr, ErrTooManyAttempts)

	// Other usernames are unaffected.
	_, _, err := service.Login(context.Background(), LoginInput{
		Username: "nobody",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureBootstrapAdmin_CreatesAdminWhenStoreEmpty(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, &mockAuthenticator{})

	// Act
	err := service.EnsureBootstrapAdmin(context.Background(), "admin", "bootstrap-secret")

	// Assert
	require.NoError(t, err)
	admin, ok := repo.users["admin"]
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("bootstrap-secret")))
}

func TestEnsureBootstrapAdmin_SkipsWhenStoreNotEmpty(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	repo.users["somchai"] = &domain.User{Username: "somchai", Role: domain.RoleUser}
	service := NewService(repo, &mockAuthenticator{})

	// Act
	err := service.EnsureBootstrapAdmin(context.Background(), "admin", "bootstrap-secret")

	// Assert — existing accounts are never touched or promoted
	assert.ErrorIs(t, err, ErrAlreadyBootstrapped)
	_, ok := repo.users["admin"]
	assert.False(t, ok)
}

func TestEnsureBootstrapAdmin_ConcurrentBootstrapIsHarmless(t *testing.T) {
	// Arrange — the store looks empty but the insert hits the unique
	// constraint because another instance bootstrapped first.
	repo := newMockRepository()
	repo.countUsersErr = nil
	repo.createUserErr = ErrUsernameExists
	service := NewService(repo, &mockAuthenticator{})

	// Act
	err := service.EnsureBootstrapAdmin(context.Background(), "admin", "bootstrap-secret")

	// Assert
	assert.ErrorIs(t, err, ErrAlreadyBootstrapped)
}
