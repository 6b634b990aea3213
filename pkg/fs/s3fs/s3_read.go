package s3fs

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Status returns the status of the entry at p. The backend stores no
// symlinks, so there is never a final link to follow.
func (s *S3) Status(ctx context.Context, p fs.Path) (*fs.FileStatus, error) {
	return s.LinkStatus(ctx, p)
}

// LinkStatus resolves p as a file object first, then as an explicit or
// implicit directory.
func (s *S3) LinkStatus(ctx context.Context, p fs.Path) (*fs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Statistics().IncrementReadOps(1)

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		st := s.dirStatusOf("/")
		return &st, nil
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		st := s.fileStatusOf("/"+key, aws.ToInt64(head.ContentLength), head.LastModified)
		return &st, nil
	}
	if !isNotFoundAPIError(err) {
		return nil, err
	}

	hasObjects, err := s.prefixHasObjects(ctx, dirMarker(key))
	if err != nil {
		return nil, err
	}
	if !hasObjects {
		return nil, fs.Errorf(fs.ErrNotFound, p.String(), "no such object")
	}
	st := s.dirStatusOf("/" + key)
	return &st, nil
}

// List returns the entries of the directory at p using delimiter-based
// listing. Objects become files; common prefixes become directories. The
// directory's own marker object is skipped.
func (s *S3) List(ctx context.Context, p fs.Path) ([]fs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Statistics().IncrementReadOps(1)

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}

	prefix := ""
	if key != "" {
		st, err := s.LinkStatus(ctx, p)
		if err != nil {
			return nil, err
		}
		if !st.IsDir {
			return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "not a directory")
		}
		prefix = dirMarker(key)
	}

	var entries []fs.FileStatus
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			if objKey == prefix {
				continue
			}
			entries = append(entries, s.fileStatusOf("/"+objKey, aws.ToInt64(obj.Size), obj.LastModified))
		}
		for _, cp := range page.CommonPrefixes {
			dirKey := strings.TrimSuffix(aws.ToString(cp.Prefix), "/")
			entries = append(entries, s.dirStatusOf("/"+dirKey))
		}
	}
	return entries, nil
}

// Open opens a streaming read over the object's body.
func (s *S3) Open(ctx context.Context, p fs.Path, _ int) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Statistics().IncrementReadOps(1)

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundAPIError(err) {
			return nil, fs.Errorf(fs.ErrNotFound, p.String(), "no such object")
		}
		return nil, err
	}
	return &s3Reader{body: out.Body, stats: s.Statistics()}, nil
}

// s3Reader counts bytes read into the shared statistics record.
type s3Reader struct {
	body  io.ReadCloser
	stats *fs.Statistics
}

func (r *s3Reader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if n > 0 {
		r.stats.AddBytesRead(int64(n))
	}
	return n, err
}

func (r *s3Reader) Close() error { return r.body.Close() }
