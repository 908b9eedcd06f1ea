package user

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/neardoer/domain/user"
)

// ErrInvalidProfile marks save-profile requests rejected for bad input.
var ErrInvalidProfile = errors.New("invalid profile")

// SaveProfileRequest is the request for the save-profile service.
type SaveProfileRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Zip      string `json:"zip"`
	Skills   string `json:"skills,omitempty"`
	Password string `json:"password,omitempty"`
}

// SaveProfileResponse carries the profile and a fresh session token.
type SaveProfileResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Created   bool        `json:"created"`
	Rejection string      `json:"rejection,omitempty"`
}

// GetUserRequest is the request for the get-user service.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse is the response for the get-user service.
type GetUserResponse struct {
	User  domain.User `json:"user"`
	Found bool        `json:"found"`
}

// VerifySessionRequest is the request for the verify-session service.
type VerifySessionRequest struct {
	Token string `json:"token"`
}

// VerifySessionResponse reports whether a token is valid and whose it is.
type VerifySessionResponse struct {
	Session domain.Session `json:"session"`
	Valid   bool           `json:"valid"`
	Error   string         `json:"error,omitempty"`
}

// UserPort is the contract other modules use to reach profiles and sessions.
type UserPort interface {
	SaveProfile(ctx context.Context, req *SaveProfileRequest) (*SaveProfileResponse, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	VerifySession(ctx context.Context, token string) (*domain.Session, error)
}
