package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/neardoer/domain/user"
	"github.com/google/uuid"
)

// ProfileInput is what a caller submits to save or switch profiles.
type ProfileInput struct {
	Name     string
	Role     string
	Zip      string
	Skills   string
	Password string
}

// SessionToken is a signed session and its expiry.
type SessionToken struct {
	Token     string
	ExpiresAt time.Time
}

// UserService implements get-or-create profiles and session tokens.
type UserService struct {
	repo     *UserRepository
	hasher   *PasswordHasher
	sessions *SessionManager
	now      func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(repo *UserRepository, hasher *PasswordHasher, sessions *SessionManager) *UserService {
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SaveProfile returns the profile matching name, role and zip, creating it
// when missing. A profile with a password only opens with that password; a
// profile without one adopts the password supplied.
func (s *UserService) SaveProfile(ctx context.Context, in ProfileInput) (*domain.User, bool, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, false, domain.ErrNameRequired
	}
	zip := strings.TrimSpace(in.Zip)
	if zip == "" {
		return nil, false, domain.ErrZipRequired
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, false, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, false, domain.ErrPasswordTooLong
	}
	skills := ""
	if role == domain.RoleHelper {
		skills = strings.TrimSpace(in.Skills)
	}

	existing, err := s.repo.FindByProfile(ctx, name, role, zip)
	switch {
	case err == nil:
		return s.openExisting(ctx, existing, in.Password, skills)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up profile: %w", err)
	}

	now := s.now()
	u := &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		Zip:       zip,
		Skills:    skills,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Password != "" {
		if u.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
			return nil, false, fmt.Errorf("failed to hash password: %w", err)
		}
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrProfileExists) {
			// Lost a race with a concurrent save of the same profile.
			existing, findErr := s.repo.FindByProfile(ctx, name, role, zip)
			if findErr != nil {
				return nil, false, fmt.Errorf("failed to look up profile: %w", findErr)
			}
			return s.openExisting(ctx, existing, in.Password, skills)
		}
		return nil, false, fmt.Errorf("failed to create profile: %w", err)
	}
	return u, true, nil
}

// openExisting signs in to a stored profile. A password is only ever set
// when the profile is created, so a password sent to a profile without one
// is rejected rather than adopted.
func (s *UserService) openExisting(ctx context.Context, u *domain.User, password, skills string) (*domain.User, bool, error) {
	switch {
	case u.PasswordHash != "":
		if !s.hasher.Verify(password, u.PasswordHash) {
			return nil, false, domain.ErrInvalidCredentials
		}
	case password != "":
		return nil, false, domain.ErrInvalidCredentials
	}
	changed := false
	if skills != "" && skills != u.Skills {
		u.Skills = skills
		changed = true
	}
	if changed {
		u.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, false, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return u, false, nil
}

// GetUser returns the profile with the given id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// IssueSession signs a session token for u.
func (s *UserService) IssueSession(u *domain.User) (SessionToken, error) {
	token, expires, err := s.sessions.Issue(domain.SessionOf(u))
	if err != nil {
		return SessionToken{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return SessionToken{Token: token, ExpiresAt: expires}, nil
}

// VerifySession decodes a session token.
func (s *UserService) VerifySession(token string) (*domain.Session, error) {
	return s.sessions.Verify(token)
}
