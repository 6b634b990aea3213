package s3fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/fs"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New("s3:///", nil, fs.NewStatsRegistry())
	assert.True(t, fs.HasCode(err, fs.ErrInvalidArgument), "missing bucket: %v", err)

	s, err := New("s3://my-bucket", nil, fs.NewStatsRegistry())
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", s.bucket)
	assert.Equal(t, "s3://my-bucket:443", s.Identity().String())
}

func TestObjectKey(t *testing.T) {
	s, err := New("s3://my-bucket", nil, fs.NewStatsRegistry())
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
	}{
		{"/", ""},
		{"/a", "a"},
		{"/a/b/c", "a/b/c"},
	}
	for _, tt := range tests {
		key, err := s.objectKey(fs.NewPath(tt.path))
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, key, tt.path)
	}

	// Keys carry no dot segments; the path validator rejects them.
	_, err = s.objectKey(fs.NewPath("/a/../b"))
	assert.True(t, fs.HasCode(err, fs.ErrInvalidPath), "dot-dot segment: %v", err)

	// Paths of another bucket are rejected.
	foreign, err := fs.ParsePath("s3://other-bucket/a")
	require.NoError(t, err)
	_, err = s.objectKey(foreign)
	assert.True(t, fs.HasCode(err, fs.ErrInvalidPath), "foreign bucket: %v", err)
}

func TestDirMarker(t *testing.T) {
	assert.Equal(t, "a/b/", dirMarker("a/b"))
}
