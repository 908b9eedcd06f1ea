package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "Poster", want: RolePoster},
		{in: " helper ", want: RoleHelper},
		{in: "POSTER", want: RolePoster},
		{in: "Admin", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRole)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionOf(t *testing.T) {
	u := &User{ID: "u1", Name: "Hana", Role: RoleHelper, Zip: "94110", Skills: "yardwork", PasswordHash: "secret"}
	s := SessionOf(u)
	assert.Equal(t, Session{UserID: "u1", Name: "Hana", Role: RoleHelper, Zip: "94110", Skills: "yardwork"}, s)
	assert.True(t, s.IsHelper())
	assert.False(t, s.IsPoster())
}
