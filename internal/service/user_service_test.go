package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/ballotbox/internal/activity"
	"github.com/prn-tf/ballotbox/internal/domain"
	"github.com/prn-tf/ballotbox/internal/repository"
)

func TestUserService_Register(t *testing.T) {
	f := newFixture(t)

	out, err := f.users.Register(context.Background(), RegisterInput{
		FullName: "Ada Lovelace",
		NID:      "1234567890",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.True(t, out.Persisted)
	assert.Equal(t, "1234567890", out.User.NID)
	assert.True(t, strings.HasPrefix(out.User.PasswordHash, "$2"), "password stored as bcrypt")
	assert.NotContains(t, out.User.PasswordHash, testPassword)
	assert.False(t, out.User.HasVoted)

	saved := f.store.saved()
	require.Len(t, saved.Users, 1)
	assert.Equal(t, out.User, saved.Users[0])
	assert.Equal(t, []string{activity.ActionUserRegistered}, f.activity.Actions())

	_, err = f.users.Register(context.Background(), RegisterInput{
		FullName: "Someone Else",
		NID:      "1234567890",
		Password: testPassword,
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))
	assert.Equal(t, 1, f.state.Directory().UserCount())
}

func TestUserService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "empty name",
			input:   RegisterInput{FullName: "  ", NID: "1234567890", Password: testPassword},
			wantErr: domain.ErrEmptyFullName,
		},
		{
			name:    "multiline name",
			input:   RegisterInput{FullName: "Ada\nLovelace", NID: "1234567890", Password: testPassword},
			wantErr: domain.ErrMultilineField,
		},
		{
			name:    "long name",
			input:   RegisterInput{FullName: strings.Repeat("a", domain.MaxFullNameLength+1), NID: "1234567890", Password: testPassword},
			wantErr: domain.ErrFieldTooLong,
		},
		{
			name:    "short NID",
			input:   RegisterInput{FullName: "Ada", NID: "12345", Password: testPassword},
			wantErr: domain.ErrInvalidNID,
		},
		{
			name:    "NID with letters",
			input:   RegisterInput{FullName: "Ada", NID: "12345abc90", Password: testPassword},
			wantErr: domain.ErrInvalidNID,
		},
		{
			name:    "weak password",
			input:   RegisterInput{FullName: "Ada", NID: "1234567890", Password: "abcdefgh"},
			wantErr: domain.ErrWeakPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.users.Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.Equal(t, 0, f.state.Directory().UserCount())
			assert.Zero(t, f.store.saves)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ada Lovelace", "1234567890")

	user, err := f.users.Authenticate(context.Background(), "1234567890", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.FullName)

	_, err = f.users.Authenticate(context.Background(), "1234567890", "Wrong123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.users.Authenticate(context.Background(), "9999999999", testPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	assert.Equal(t, []string{
		activity.ActionUserRegistered,
		activity.ActionUserLoggedIn,
		activity.ActionFailedLogin,
		activity.ActionFailedLogin,
	}, f.activity.Actions())

	entries := f.activity.Entries()
	require.NotNil(t, entries[1].Actor)
	assert.Equal(t, "1234567890", entries[1].Actor.NID)
	assert.Nil(t, entries[2].Actor)
}

func TestUserService_LegacyHashUpgrade(t *testing.T) {
	f := newFixture(t)
	legacy := domain.NewUser("Old Timer", "1234567890", LegacyHash(testPassword))
	_, err := f.state.Mutate(context.Background(), "seed", func(dir repository.Directory) error {
		_, err := dir.AddUser(legacy)
		return err
	})
	require.NoError(t, err)

	_, err = f.users.Authenticate(context.Background(), "1234567890", "Wrong123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	user, err := f.users.Authenticate(context.Background(), "1234567890", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "Old Timer", user.FullName)

	stored, _ := f.state.Directory().User(0)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))
	assert.Contains(t, f.activity.Actions(), activity.ActionPasswordRehashed)

	// The upgraded hash keeps working.
	_, err = f.users.Authenticate(context.Background(), "1234567890", testPassword)
	assert.NoError(t, err)
}

func TestLegacyHash(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{"", "H0"},
		{"A", "H65"},
		{"Ab", "H2113"},
		// 2113*31+99 = 65602
		{"Abc", "H65602"},
		// (65602*31+100) % 100000 = 33762
		{"Abcd", "H33762"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, LegacyHash(tt.password))
		})
	}
}
