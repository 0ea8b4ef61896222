// Package identity implements registration, login and token
// verification against the credential store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/rosterhub/roster/internal/domain"
)

// Service errors.
var (
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// Repository defines credential store operations.
type Repository interface {
	// CreateUser inserts a user. Returns ErrUsernameExists when the
	// username is already taken; the database uniqueness constraint is
	// the authority for this, not a prior existence check.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// TokenAuthenticator issues and verifies signed identity tokens.
type TokenAuthenticator interface {
	GenerateToken(ctx context.Context, user *domain.User) (string, error)
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// Login throttling: per-username token bucket. Entries for idle
// usernames are discarded once the bucket refills.
const (
	loginRateLimit = rate.Limit(1) // sustained attempts per second
	loginRateBurst = 5
)

// Service implements identity business logic.
type Service struct {
	repo Repository
	auth TokenAuthenticator

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewService creates a new identity service.
func NewService(repo Repository, auth TokenAuthenticator) *Service {
	return &Service{
		repo:     repo,
		auth:     auth,
		limiters: make(map[string]*rate.Limiter),
	}
}

// RegisterInput holds data for registering a new account.
type RegisterInput struct {
	Username string
	Password string
}

// Register creates a new account with role "user". Registration does
// not log the account in; no token is issued.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := norm.NFC.String(input.Username)

	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}

	// CreateUser surfaces ErrUsernameExists on the unique constraint,
	// which closes the race between the check above and the insert.
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// LoginInput holds login credentials.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and issues a signed identity token valid
// for the configured duration. The returned user never includes the
// password hash.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, string, error) {
	username := norm.NFC.String(input.Username)

	if !s.allowAttempt(username) {
		return nil, "", ErrTooManyAttempts
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.auth.GenerateToken(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// ValidateToken verifies a token's signature and expiry and returns
// the embedded claims.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	return s.auth.ValidateToken(ctx, token)
}

// GetUserByID returns a user by id.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) allowAttempt(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[username]
	if !ok {
		limiter = rate.NewLimiter(loginRateLimit, loginRateBurst)
		s.limiters[username] = limiter
	}

	// Drop fully refilled buckets so the map does not grow unbounded.
	for name, l := range s.limiters {
		if name != username && l.Tokens() >= loginRateBurst {
			delete(s.limiters, name)
		}
	}

	return limiter.Allow()
}
