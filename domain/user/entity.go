package user

import (
	"strings"
	"time"
)

// Role is fixed when a profile is created.
type Role string

const (
	RolePoster Role = "Poster"
	RoleHelper Role = "Helper"
)

// ParseRole matches s case-insensitively.
func ParseRole(s string) (Role, error) {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), string(RolePoster)):
		return RolePoster, nil
	case strings.EqualFold(strings.TrimSpace(s), string(RoleHelper)):
		return RoleHelper, nil
	}
	return "", ErrInvalidRole
}

// User is a marketplace profile. A profile is identified by its name, role
// and zip together.
type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	Name         string    `gorm:"not null;type:text;uniqueIndex:idx_users_profile" json:"name"`
	Role         Role      `gorm:"not null;type:text;uniqueIndex:idx_users_profile" json:"role"`
	Zip          string    `gorm:"not null;type:text;uniqueIndex:idx_users_profile" json:"zip"`
	Skills       string    `gorm:"type:text" json:"skills,omitempty"`
	PasswordHash string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Session is the caller identity passed explicitly into every request.
type Session struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Zip    string `json:"zip"`
	Skills string `json:"skills,omitempty"`
}

// SessionOf builds the session context for u.
func SessionOf(u *User) Session {
	return Session{
		UserID: u.ID,
		Name:   u.Name,
		Role:   u.Role,
		Zip:    u.Zip,
		Skills: u.Skills,
	}
}

func (s Session) IsPoster() bool { return s.Role == RolePoster }
func (s Session) IsHelper() bool { return s.Role == RoleHelper }
