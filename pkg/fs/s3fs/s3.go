// Package s3fs provides an object-store reference backend on Amazon S3 or
// any S3-compatible service (MinIO, Localstack).
//
// The bucket is the backend's authority; object keys mirror slash-absolute
// paths without the leading slash. Directories are zero-byte marker objects
// whose key ends in "/", and a directory also exists implicitly whenever any
// object lives under its prefix. S3 has no native rename, so the atomic
// rename primitive is implemented as copy-then-delete per object; callers
// needing stronger guarantees should prefer a backend with a real rename.
package s3fs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "s3"

// DefaultPort is the HTTPS port S3 endpoints listen on.
const DefaultPort = 443

// Server defaults reported for every path. The block size is nominal; S3
// does not expose one.
const (
	defaultBlockSize        = 64 * 1024 * 1024
	defaultBytesPerChecksum = 512
	defaultFileBufferSize   = 65536
	defaultReplication      = 1
)

// deleteBatchSize is the S3 limit for one DeleteObjects call.
const deleteBatchSize = 1000

// S3 implements fs.Backend on an S3 bucket.
//
// The S3 client is safe for concurrent use and the backend keeps no local
// state, so no locking is needed. Consistency is whatever S3 provides
// (read-after-write for new objects).
type S3 struct {
	fs.Base
	client *s3.Client
	bucket string
}

// New creates a backend over an existing S3 client. The bucket comes from
// the URI's authority, which is mandatory for this scheme.
func New(rawURI string, client *s3.Client, stats *fs.StatsRegistry) (*S3, error) {
	base, err := fs.NewBase(rawURI, Scheme, true, DefaultPort, stats)
	if err != nil {
		return nil, err
	}
	return &S3{
		Base:   base,
		client: client,
		bucket: base.Identity().Host(),
	}, nil
}

// FactoryWithClient binds a constructed S3 client to the registry's factory
// signature.
func FactoryWithClient(client *s3.Client) fs.Factory {
	return func(_ context.Context, rawURI string, stats *fs.StatsRegistry) (fs.Backend, error) {
		return New(rawURI, client, stats)
	}
}

// SupportsSymlinks reports that symbolic links are not stored.
func (s *S3) SupportsSymlinks() bool { return false }

// ServerDefaults returns the static defaults of the S3 backend.
func (s *S3) ServerDefaults(_ context.Context, _ fs.Path) (fs.ServerDefaults, error) {
	return fs.ServerDefaults{
		BlockSize:         defaultBlockSize,
		BytesPerChecksum:  defaultBytesPerChecksum,
		ChecksumAlgorithm: fs.ChecksumCRC32C,
		FileBufferSize:    defaultFileBufferSize,
		Replication:       defaultReplication,
	}, nil
}

// objectKey validates p against this backend and returns its object key. The
// root maps to the empty key.
func (s *S3) objectKey(p fs.Path) (string, error) {
	pathPart, err := fs.URIPath(s, p)
	if err != nil {
		return "", err
	}
	return strings.Trim(pathPart, "/"), nil
}

// dirMarker returns the marker key of a directory key.
func dirMarker(key string) string {
	return key + "/"
}

// isNotFoundAPIError reports whether the S3 error means the object is absent.
// HeadObject surfaces types.NotFound, GetObject surfaces types.NoSuchKey.
func isNotFoundAPIError(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

// fileStatusOf builds the FileStatus for an object at a clean path.
func (s *S3) fileStatusOf(pathPart string, size int64, modTime *time.Time) fs.FileStatus {
	qualified, _ := fs.MakeQualified(s, fs.NewPath(pathPart))
	st := fs.FileStatus{
		Path:        qualified,
		Size:        size,
		Mode:        0644,
		Replication: defaultReplication,
		BlockSize:   defaultBlockSize,
	}
	if modTime != nil {
		st.ModTime = *modTime
	}
	return st
}

// dirStatusOf builds the FileStatus for a directory at a clean path.
func (s *S3) dirStatusOf(pathPart string) fs.FileStatus {
	qualified, _ := fs.MakeQualified(s, fs.NewPath(pathPart))
	return fs.FileStatus{
		Path:  qualified,
		Mode:  0755,
		IsDir: true,
	}
}

// exists reports whether any object (file, marker, or implicit prefix) lives
// at or under the key.
func (s *S3) exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if !isNotFoundAPIError(err) {
		return false, err
	}
	return s.prefixHasObjects(ctx, dirMarker(key))
}

// prefixHasObjects reports whether at least one object lives under the prefix.
func (s *S3) prefixHasObjects(ctx context.Context, prefix string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0 || len(out.CommonPrefixes) > 0, nil
}
