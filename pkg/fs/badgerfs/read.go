package badgerfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Status returns the status of the entry at p. The backend stores no
// symlinks, so there is never a final link to follow.
func (b *Badger) Status(ctx context.Context, p fs.Path) (*fs.FileStatus, error) {
	return b.LinkStatus(ctx, p)
}

// LinkStatus returns the status of the entry at p.
func (b *Badger) LinkStatus(ctx context.Context, p fs.Path) (*fs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.Statistics().IncrementReadOps(1)

	path, err := b.cleanPath(p)
	if err != nil {
		return nil, err
	}

	var st fs.FileStatus
	err = b.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, path, p)
		if err != nil {
			return err
		}
		st = b.status(path, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// List returns the entries of the directory at p via a range scan over the
// directory's child-key prefix. Entries come back in key order, which is
// name order.
func (b *Badger) List(ctx context.Context, p fs.Path) ([]fs.FileStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.Statistics().IncrementReadOps(1)

	dirPath, err := b.cleanPath(p)
	if err != nil {
		return nil, err
	}

	var entries []fs.FileStatus
	err = b.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, dirPath, p)
		if err != nil {
			return err
		}
		if !rec.Dir {
			return fs.Errorf(fs.ErrStructuralMismatch, p.String(), "not a directory")
		}

		prefix := keyChildPrefix(dirPath)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			childPath := childPathOf(dirPath, name)
			childRec, err := getRecord(txn, childPath, fs.NewPath(childPath))
			if err != nil {
				return fmt.Errorf("dangling directory entry %s: %w", childPath, err)
			}
			entries = append(entries, b.status(childPath, childRec))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// childPathOf joins a clean directory path and an entry name.
func childPathOf(dirPath, name string) string {
	if dirPath == "/" {
		return "/" + name
	}
	return dirPath + "/" + name
}

// Open reads the file's content inside one View transaction and serves the
// stream from the resulting copy. The buffer size is ignored.
func (b *Badger) Open(ctx context.Context, p fs.Path, _ int) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.Statistics().IncrementReadOps(1)

	path, err := b.cleanPath(p)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = b.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, path, p)
		if err != nil {
			return err
		}
		if rec.Dir {
			return fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
		}
		item, err := txn.Get(keyContent(path))
		if err == badger.ErrKeyNotFound {
			// A record without content is an empty file.
			data = nil
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &countingReader{Reader: bytes.NewReader(data), stats: b.Statistics()}, nil
}

// countingReader counts bytes read into the shared statistics record.
type countingReader struct {
	*bytes.Reader
	stats *fs.Statistics
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if n > 0 {
		r.stats.AddBytesRead(int64(n))
	}
	return n, err
}

func (r *countingReader) Close() error { return nil }
