package user

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "github.com/example/neardoer/domain/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

func startModule(t *testing.T) *UserModule {
	t.Helper()
	m := NewModule(Config{
		DBPath:     ":memory:",
		BcryptCost: bcrypt.MinCost,
		Session:    SessionConfig{SecretKey: "test-secret", TTL: time.Hour},
	}, &mockLogger{})
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

func TestSaveProfile_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	m := startModule(t)

	first, created, err := m.service.SaveProfile(ctx, ProfileInput{Name: " Ana ", Role: "helper", Zip: " 94110 ", Skills: " furniture assembly "})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ana", first.Name)
	assert.Equal(t, domain.RoleHelper, first.Role)
	assert.Equal(t, "94110", first.Zip)
	assert.Equal(t, "furniture assembly", first.Skills)

	again, created, err := m.service.SaveProfile(ctx, ProfileInput{Name: "Ana", Role: "Helper", Zip: "94110"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "furniture assembly", again.Skills, "blank skills keep the saved ones")

	poster, created, err := m.service.SaveProfile(ctx, ProfileInput{Name: "Ana", Role: "Poster", Zip: "94110", Skills: "ignored"})
	require.NoError(t, err)
	assert.True(t, created, "a different role is a different profile")
	assert.NotEqual(t, first.ID, poster.ID)
	assert.Empty(t, poster.Skills)
}

func TestSaveProfile_Validation(t *testing.T) {
	m := startModule(t)
	tests := []struct {
		name string
		in   ProfileInput
		want error
	}{
		{"missing name", ProfileInput{Role: "Poster", Zip: "1"}, domain.ErrNameRequired},
		{"missing zip", ProfileInput{Name: "a", Role: "Poster"}, domain.ErrZipRequired},
		{"bad role", ProfileInput{Name: "a", Role: "Admin", Zip: "1"}, domain.ErrInvalidRole},
		{"long password", ProfileInput{Name: "a", Role: "Poster", Zip: "1", Password: string(make([]byte, 73))}, domain.ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := m.service.SaveProfile(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSaveProfile_Password(t *testing.T) {
	ctx := context.Background()
	m := startModule(t)

	u, _, err := m.service.SaveProfile(ctx, ProfileInput{Name: "Bo", Role: "Poster", Zip: "1", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.PasswordHash)

	_, _, err = m.service.SaveProfile(ctx, ProfileInput{Name: "Bo", Role: "Poster", Zip: "1", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = m.service.SaveProfile(ctx, ProfileInput{Name: "Bo", Role: "Poster", Zip: "1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	same, _, err := m.service.SaveProfile(ctx, ProfileInput{Name: "Bo", Role: "Poster", Zip: "1", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, same.ID)
}

func TestSaveProfile_OpenProfileCannotBeClaimedWithPassword(t *testing.T) {
	ctx := context.Background()
	m := startModule(t)

	u, _, err := m.service.SaveProfile(ctx, ProfileInput{Name: "Cy", Role: "Helper", Zip: "1"})
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash)

	_, _, err = m.service.SaveProfile(ctx, ProfileInput{Name: "Cy", Role: "Helper", Zip: "1", Password: "secret", Skills: "plumbing"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	stored, err := m.service.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PasswordHash, "a later caller must not set the password")
	assert.Empty(t, stored.Skills)

	same, _, err := m.service.SaveProfile(ctx, ProfileInput{Name: "Cy", Role: "Helper", Zip: "1"})
	require.NoError(t, err, "the owner still signs in without a password")
	assert.Equal(t, u.ID, same.ID)
}

func TestSaveProfile_ConcurrentSavesShareOneProfile(t *testing.T) {
	ctx := context.Background()
	m := startModule(t)

	const n = 6
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, _, err := m.service.SaveProfile(ctx, ProfileInput{Name: "Dee", Role: "Poster", Zip: "1"})
			if assert.NoError(t, err) {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

func TestHandlers(t *testing.T) {
	ctx := context.Background()
	m := startModule(t)

	saved, err := m.handleSaveProfile(ctx, SaveProfileRequest{Name: "Eve", Role: "Helper", Zip: "10001", Skills: "tech"}, nil)
	require.NoError(t, err)
	assert.True(t, saved.Created)
	assert.NotEmpty(t, saved.Token)

	verified, err := m.handleVerifySession(ctx, VerifySessionRequest{Token: saved.Token}, nil)
	require.NoError(t, err)
	require.True(t, verified.Valid)
	assert.Equal(t, domain.Session{UserID: saved.User.ID, Name: "Eve", Role: domain.RoleHelper, Zip: "10001", Skills: "tech"}, verified.Session)

	rejected, err := m.handleVerifySession(ctx, VerifySessionRequest{Token: "garbage"}, nil)
	require.NoError(t, err)
	assert.False(t, rejected.Valid)
	assert.Equal(t, ErrInvalidToken.Error(), rejected.Error)

	got, err := m.handleGetUser(ctx, GetUserRequest{UserID: saved.User.ID}, nil)
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, "Eve", got.User.Name)

	missing, err := m.handleGetUser(ctx, GetUserRequest{UserID: "nope"}, nil)
	require.NoError(t, err)
	assert.False(t, missing.Found)

	bad, err := m.handleSaveProfile(ctx, SaveProfileRequest{Name: "Eve", Role: "Admin", Zip: "1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ErrInvalidRole.Error(), bad.Rejection)
	assert.Empty(t, bad.Token)

	assert.True(t, m.Health(ctx).Healthy)
}

func TestSessionManager(t *testing.T) {
	mgr := NewSessionManager(SessionConfig{SecretKey: "k", TTL: time.Minute})
	s := domain.Session{UserID: "u1", Name: "n", Role: domain.RolePoster, Zip: "1"}

	token, expires, err := mgr.Issue(s)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)

	got, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, s, *got)

	other := NewSessionManager(SessionConfig{SecretKey: "different", TTL: time.Minute})
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	mgr.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = mgr.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.True(t, h.Verify("pw", hash))
	assert.False(t, h.Verify("PW", hash))
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
}
