// Package directory implements the member profile roster: create,
// full-replace update, delete and ordered listing, with a change
// signal broadcast after every successful mutation.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rosterhub/roster/internal/domain"
)

// ErrProfileNotFound is returned for operations on a profile id that
// does not exist. Deleting a missing profile reports this error rather
// than succeeding silently.
var ErrProfileNotFound = errors.New("profile not found")

// Repository defines directory store operations. Each operation is a
// single statement and therefore atomic with respect to the store.
type Repository interface {
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	UpdateProfile(ctx context.Context, profile *domain.Profile) error
	DeleteProfile(ctx context.Context, id int64) error
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
}

// ChangeNotifier broadcasts a payload-free "directory changed" signal
// to connected subscribers. Implementations must not block.
type ChangeNotifier interface {
	DirectoryChanged()
}

// Service implements directory business logic.
type Service struct {
	repo     Repository
	notifier ChangeNotifier
}

// NewService creates a new directory service. notifier may be nil when
// realtime notifications are disabled.
func NewService(repo Repository, notifier ChangeNotifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
	}
}

// Create inserts a new profile. The store assigns ID and UpdatedAt.
// Exactly one change signal is broadcast on success, none on failure.
func (s *Service) Create(ctx context.Context, profile *domain.Profile) error {
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	s.notifyChanged()
	return nil
}

// Update replaces all mutable fields of the profile with the supplied
// state and refreshes UpdatedAt. It is a total replace, not a merge:
// callers supply the complete desired record.
func (s *Service) Update(ctx context.Context, id int64, profile *domain.Profile) error {
	profile.ID = id

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return err
		}
		return fmt.Errorf("update profile: %w", err)
	}

	s.notifyChanged()
	return nil
}

// Delete removes a profile by id. A missing id reports
// ErrProfileNotFound and broadcasts nothing.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProfile(ctx, id); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return err
		}
		return fmt.Errorf("delete profile: %w", err)
	}

	s.notifyChanged()
	return nil
}

// List returns all profiles in ascending id order.
func (s *Service) List(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := s.repo.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

func (s *Service) notifyChanged() {
	if s.notifier != nil {
		s.notifier.DirectoryChanged()
	}
}
