package user

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/neardoer/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// userAdapter implements UserPort over the user module's services.
type userAdapter struct {
	container mono.ServiceContainer
}

// NewUserAdapter creates a UserPort backed by container.
func NewUserAdapter(container mono.ServiceContainer) UserPort {
	if container == nil {
		panic("user adapter requires non-nil ServiceContainer")
	}
	return &userAdapter{container: container}
}

// SaveProfile returns domain.ErrInvalidCredentials or an error wrapping
// ErrInvalidProfile when the request is rejected.
func (a *userAdapter) SaveProfile(ctx context.Context, req *SaveProfileRequest) (*SaveProfileResponse, error) {
	var resp SaveProfileResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "save-profile", json.Marshal, json.Unmarshal, req, &resp,
	); err != nil {
		return nil, fmt.Errorf("save-profile service call failed: %w", err)
	}
	switch resp.Rejection {
	case "":
		return &resp, nil
	case domain.ErrInvalidCredentials.Error():
		return nil, domain.ErrInvalidCredentials
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidProfile, resp.Rejection)
}

// GetUser returns domain.ErrNotFound when no profile has userID.
func (a *userAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "get-user", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-user service call failed: %w", err)
	}
	if !resp.Found {
		return nil, domain.ErrNotFound
	}
	return &resp.User, nil
}

// VerifySession returns ErrInvalidToken or ErrExpiredToken for rejected tokens.
func (a *userAdapter) VerifySession(ctx context.Context, token string) (*domain.Session, error) {
	req := VerifySessionRequest{Token: token}
	var resp VerifySessionResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "verify-session", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("verify-session service call failed: %w", err)
	}
	if !resp.Valid {
		if resp.Error == ErrExpiredToken.Error() {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return &resp.Session, nil
}
