package s3fs

import (
	"bytes"
	"context"
	"io"
	gopath "path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/driftfs/driftfs/pkg/fs"
)

// checkParent verifies the containing directory of the key exists.
func (s *S3) checkParent(ctx context.Context, key string, orig fs.Path) error {
	parent := gopath.Dir(key)
	if parent == "." || parent == "/" {
		return nil
	}
	exists, err := s.exists(ctx, parent)
	if err != nil {
		return err
	}
	if !exists {
		return fs.Errorf(fs.ErrNotFound, orig.String(), "parent %s does not exist", parent)
	}
	return nil
}

// Mkdir writes a zero-byte directory marker at p. With createParent false the
// containing directory must already exist; S3 prefixes need no intermediate
// markers, so createParent true skips the check entirely.
func (s *S3) Mkdir(ctx context.Context, p fs.Path, _ uint32, createParent bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Statistics().IncrementWriteOps(1)

	key, err := s.objectKey(p)
	if err != nil {
		return err
	}
	if key == "" {
		return fs.Errorf(fs.ErrAlreadyExists, p.String(), "root directory already exists")
	}

	exists, err := s.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return fs.Errorf(fs.ErrAlreadyExists, p.String(), "directory already exists")
	}
	if !createParent {
		if err := s.checkParent(ctx, key, p); err != nil {
			return err
		}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(dirMarker(key)),
		Body:   bytes.NewReader(nil),
	})
	return err
}

// deletePrefix removes every object under the prefix in DeleteObjects
// batches.
func (s *S3) deletePrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, err
		}
		var batch []types.ObjectIdentifier
		for _, obj := range page.Contents {
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if err := s.deleteBatch(ctx, batch); err != nil {
					return deleted, err
				}
				deleted += len(batch)
				batch = nil
			}
		}
		if len(batch) > 0 {
			if err := s.deleteBatch(ctx, batch); err != nil {
				return deleted, err
			}
			deleted += len(batch)
		}
	}
	return deleted, nil
}

func (s *S3) deleteBatch(ctx context.Context, batch []types.ObjectIdentifier) error {
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
	})
	return err
}

// Delete removes the entry at p. A non-recursive delete of a non-empty
// directory fails with ErrNotEmpty.
func (s *S3) Delete(ctx context.Context, p fs.Path, recursive bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.Statistics().IncrementWriteOps(1)

	key, err := s.objectKey(p)
	if err != nil {
		return false, err
	}

	st, err := s.LinkStatus(ctx, p)
	if err != nil {
		return false, err
	}

	if !st.IsDir {
		_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return false, err
		}
		return true, nil
	}

	prefix := ""
	if key != "" {
		prefix = dirMarker(key)
	}
	if !recursive {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucket),
			Prefix:  aws.String(prefix),
			MaxKeys: aws.Int32(2),
		})
		if err != nil {
			return false, err
		}
		for _, obj := range out.Contents {
			if aws.ToString(obj.Key) != prefix {
				return false, fs.Errorf(fs.ErrNotEmpty, p.String(), "directory is not empty")
			}
		}
	}

	deleted, err := s.deletePrefix(ctx, prefix)
	if err != nil {
		return false, err
	}
	return deleted > 0 || key != "", nil
}

// RenameAtomic moves src to dst. S3 has no rename primitive, so each object
// is copied then deleted; the operation is atomic per object, not per tree.
// It fails with ErrAlreadyExists when the destination is present.
func (s *S3) RenameAtomic(ctx context.Context, src, dst fs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Statistics().IncrementWriteOps(1)

	srcKey, err := s.objectKey(src)
	if err != nil {
		return err
	}
	dstKey, err := s.objectKey(dst)
	if err != nil {
		return err
	}
	if srcKey == "" {
		return fs.Errorf(fs.ErrInvalidPath, src.String(), "cannot rename the root directory")
	}
	if dstKey == "" {
		return fs.Errorf(fs.ErrAlreadyExists, dst.String(), "destination is the root directory")
	}
	if strings.HasPrefix(dstKey, srcKey+"/") {
		return fs.Errorf(fs.ErrInvalidPath, dst.String(), "cannot rename %s under itself", src)
	}

	dstExists, err := s.exists(ctx, dstKey)
	if err != nil {
		return err
	}
	if dstExists {
		return fs.Errorf(fs.ErrAlreadyExists, dst.String(), "rename destination already exists")
	}
	if err := s.checkParent(ctx, dstKey, dst); err != nil {
		return err
	}

	st, err := s.LinkStatus(ctx, src)
	if err != nil {
		return err
	}

	if !st.IsDir {
		return s.moveObject(ctx, srcKey, dstKey)
	}

	srcPrefix := dirMarker(srcKey)
	dstPrefix := dirMarker(dstKey)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(srcPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			newKey := dstPrefix + strings.TrimPrefix(objKey, srcPrefix)
			if err := s.moveObject(ctx, objKey, newKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// moveObject copies one object to a new key and removes the original.
func (s *S3) moveObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(srcKey),
	})
	return err
}

// CreateFile opens a write stream at p. The object is uploaded with a single
// PutObject when the returned writer is closed.
func (s *S3) CreateFile(ctx context.Context, p fs.Path, flags fs.CreateFlag, params *fs.CreateParameters) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Statistics().IncrementWriteOps(1)

	key, err := s.objectKey(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
	}

	w := &s3Writer{
		fs:       s,
		ctx:      ctx,
		key:      key,
		orig:     p,
		progress: params.Progress,
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		switch {
		case flags&fs.FlagAppend != 0:
			// S3 objects are immutable; append reads back the old content
			// and rewrites the whole object on close.
			body, err := s.Open(ctx, p, defaultFileBufferSize)
			if err != nil {
				return nil, err
			}
			_, err = io.Copy(&w.buf, body)
			_ = body.Close()
			if err != nil {
				return nil, err
			}
		case flags&fs.FlagOverwrite != 0:
			// Replaced on close.
		default:
			return nil, fs.Errorf(fs.ErrAlreadyExists, p.String(), "object already exists")
		}
	case isNotFoundAPIError(err):
		isDir, derr := s.prefixHasObjects(ctx, dirMarker(key))
		if derr != nil {
			return nil, derr
		}
		if isDir {
			return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
		}
		if flags&fs.FlagCreate == 0 {
			return nil, fs.Errorf(fs.ErrNotFound, p.String(), "no such object")
		}
		if !params.CreateParent {
			if err := s.checkParent(ctx, key, p); err != nil {
				return nil, err
			}
		}
	default:
		return nil, err
	}
	return w, nil
}

// s3Writer buffers the whole object and uploads it on Close.
type s3Writer struct {
	fs       *S3
	ctx      context.Context
	key      string
	orig     fs.Path
	buf      bytes.Buffer
	progress fs.ProgressFunc
	closed   bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.Errorf(fs.ErrInvalidArgument, w.orig.String(), "write to closed object")
	}
	n, err := w.buf.Write(p)
	if n > 0 {
		w.fs.Statistics().AddBytesWritten(int64(n))
		if w.progress != nil {
			w.progress(int64(n))
		}
	}
	return n, err
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.fs.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.fs.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return err
}
