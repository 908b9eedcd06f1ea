package user

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrNameRequired       = errors.New("name is required")
	ErrZipRequired        = errors.New("zip is required")
	ErrInvalidRole        = errors.New("role must be Poster or Helper")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)
