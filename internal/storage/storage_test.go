package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"election_results.txt", true},
		{"backups/backup_users_20260301_080509.txt", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../etc/passwd", false},
		{"/etc/passwd", false},
		{"a/../../b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("ballotbox/", "results.txt")
	require.NoError(t, err)
	assert.Equal(t, "ballotbox/results.txt", key)

	key, err = ObjectKey("", "results.txt")
	require.NoError(t, err)
	assert.Equal(t, "results.txt", key)
}

func TestFilesystemBackend_Put(t *testing.T) {
	dir := t.TempDir()
	b := NewFilesystemBackend(dir, zerolog.Nop())

	loc, err := b.Put(context.Background(), "election_results.txt", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "election_results.txt"), loc)

	_, err = b.Put(context.Background(), "election_results.txt", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = b.Put(context.Background(), "../escape.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestS3Backend_Put(t *testing.T) {
	client := new(MockS3Client)
	b := newS3Backend(client, "votes", "ballotbox/", zerolog.Nop())

	var body []byte
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "votes" &&
			aws.ToString(in.Key) == "ballotbox/backup_users_20260301_080509.txt"
	})).Run(func(args mock.Arguments) {
		body, _ = io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(&s3.PutObjectOutput{}, nil)

	loc, err := b.Put(context.Background(), "backup_users_20260301_080509.txt", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "s3://votes/ballotbox/backup_users_20260301_080509.txt", loc)
	assert.Equal(t, "payload", string(body))
	client.AssertExpectations(t)
}

type failingBackend struct{}

func (failingBackend) Name() string { return "broken" }
func (failingBackend) Put(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func TestMulti_PutAll(t *testing.T) {
	dir := t.TempDir()
	m := NewMulti(NewFilesystemBackend(dir, zerolog.Nop()), nil, failingBackend{})
	assert.Len(t, m.Backends(), 2)

	locs, err := m.PutAll(context.Background(), "a.txt", []byte("x"))
	assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, locs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: disk full")
}
