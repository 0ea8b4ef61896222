package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/rosterhub/roster/internal/domain"
)

// ErrAlreadyBootstrapped is returned when a bootstrap admin is
// requested but the credential store is not empty.
var ErrAlreadyBootstrapped = errors.New("credential store is not empty")

// EnsureBootstrapAdmin creates the initial admin account. It is the
// replacement for any hardcoded credential bypass: it only acts while
// the credential store is completely empty, runs once at startup, and
// the resulting account goes through the normal login path afterwards.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) error {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return ErrAlreadyBootstrapped
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	admin := &domain.User{
		Username:     norm.NFC.String(username),
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}

	if err := s.repo.CreateUser(ctx, admin); err != nil {
		// A concurrent instance may have bootstrapped first; the unique
		// constraint makes that harmless.
		if errors.Is(err, ErrUsernameExists) {
			return ErrAlreadyBootstrapped
		}
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	slog.Info("bootstrap admin created", "username", admin.Username)
	return nil
}
