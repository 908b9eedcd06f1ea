package user

import (
	"context"
	"errors"

	domain "github.com/example/neardoer/domain/user"
	"gorm.io/gorm"
)

// ErrProfileExists is returned when a profile with the same name, role and zip exists.
var ErrProfileExists = errors.New("profile already exists")

// UserRepository handles profile persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	result := r.db.WithContext(ctx).Create(u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrProfileExists
		}
		return result.Error
	}
	return nil
}

// FindByID finds a profile by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	result := r.db.WithContext(ctx).First(&u, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}

// FindByProfile finds the profile identified by name, role and zip.
func (r *UserRepository) FindByProfile(ctx context.Context, name string, role domain.Role, zip string) (*domain.User, error) {
	var u domain.User
	result := r.db.WithContext(ctx).
		Where("name = ? AND role = ? AND zip = ?", name, role, zip).
		First(&u)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}

// Update saves changed credential and skills fields of u.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"skills":        u.Skills,
			"password_hash": u.PasswordHash,
			"updated_at":    u.UpdatedAt,
		}).Error
}
