package user

import (
	"errors"
	"time"

	domain "github.com/example/neardoer/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token has expired")
)

// SessionConfig configures session token signing.
type SessionConfig struct {
	SecretKey string
	TTL       time.Duration
	Issuer    string
}

// SessionClaims carries the session context inside a signed token.
type SessionClaims struct {
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
	Zip    string      `json:"zip"`
	Skills string      `json:"skills,omitempty"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	config SessionConfig
	now    func() time.Time
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(config SessionConfig) *SessionManager {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "neardoer"
	}
	return &SessionManager{config: config, now: time.Now}
}

// Issue signs a token for s.
func (m *SessionManager) Issue(s domain.Session) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.config.TTL)
	claims := SessionClaims{
		Name:   s.Name,
		Role:   s.Role,
		Zip:    s.Zip,
		Skills: s.Skills,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   s.UserID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify parses tokenString and returns the session it carries.
func (m *SessionManager) Verify(tokenString string) (*domain.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithIssuer(m.config.Issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Session{
		UserID: claims.Subject,
		Name:   claims.Name,
		Role:   claims.Role,
		Zip:    claims.Zip,
		Skills: claims.Skills,
	}, nil
}
