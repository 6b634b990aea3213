package badgerfs

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/driftfs/driftfs/pkg/fs"
)

// ensureParents verifies the parent chain of a clean path, creating missing
// directories when create is true. Must run inside an Update transaction when
// create is true.
func ensureParents(txn *badger.Txn, path string, mode uint32, create bool, orig fs.Path) error {
	parent := parentOf(path)
	_, err := txn.Get(keyRecord(parent))
	if err == nil {
		rec, err := getRecord(txn, parent, orig)
		if err != nil {
			return err
		}
		if !rec.Dir {
			return fs.Errorf(fs.ErrParentNotDirectory, orig.String(),
				"%s is not a directory", parent)
		}
		return nil
	}
	if err != badger.ErrKeyNotFound {
		return err
	}
	if !create {
		return fs.Errorf(fs.ErrNotFound, orig.String(), "parent %s does not exist", parent)
	}
	if err := ensureParents(txn, parent, mode, true, orig); err != nil {
		return err
	}
	if err := setRecord(txn, parent, &fileRecord{
		Dir:         true,
		Mode:        mode,
		ModTimeNano: time.Now().UnixNano(),
	}); err != nil {
		return err
	}
	return txn.Set(keyChild(parentOf(parent), nameOf(parent)), nil)
}

// hasChildren reports whether the directory at the clean path has any entry.
func hasChildren(txn *badger.Txn, dirPath string) bool {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = keyChildPrefix(dirPath)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	it.Rewind()
	return it.Valid()
}

// childNames collects the entry names of a directory. Collected up front so
// callers can mutate the index while walking.
func childNames(txn *badger.Txn, dirPath string) []string {
	prefix := keyChildPrefix(dirPath)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var names []string
	for it.Rewind(); it.Valid(); it.Next() {
		names = append(names, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
	}
	return names
}

// Mkdir creates the directory at p with the given permission bits.
func (b *Badger) Mkdir(ctx context.Context, p fs.Path, permission uint32, createParent bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Statistics().IncrementWriteOps(1)

	path, err := b.cleanPath(p)
	if err != nil {
		return err
	}
	if path == "/" {
		return fs.Errorf(fs.ErrAlreadyExists, p.String(), "root directory already exists")
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyRecord(path)); err == nil {
			return fs.Errorf(fs.ErrAlreadyExists, p.String(), "directory already exists")
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := ensureParents(txn, path, permission, createParent, p); err != nil {
			return err
		}
		if err := setRecord(txn, path, &fileRecord{
			Dir:         true,
			Mode:        permission,
			ModTimeNano: time.Now().UnixNano(),
		}); err != nil {
			return err
		}
		return txn.Set(keyChild(parentOf(path), nameOf(path)), nil)
	})
}

// deleteSubtree removes the record, content, and child index of the entry at
// the clean path, recursing into directories.
func deleteSubtree(txn *badger.Txn, path string) error {
	for _, name := range childNames(txn, path) {
		if err := deleteSubtree(txn, childPathOf(path, name)); err != nil {
			return err
		}
		if err := txn.Delete(keyChild(path, name)); err != nil {
			return err
		}
	}
	if err := txn.Delete(keyContent(path)); err != nil {
		return err
	}
	return txn.Delete(keyRecord(path))
}

// Delete removes the entry at p. A non-recursive delete of a non-empty
// directory fails with ErrNotEmpty. Deleting the root empties it when
// recursive; the root record itself is never removed.
func (b *Badger) Delete(ctx context.Context, p fs.Path, recursive bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.Statistics().IncrementWriteOps(1)

	path, err := b.cleanPath(p)
	if err != nil {
		return false, err
	}

	removed := false
	err = b.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, path, p)
		if err != nil {
			return err
		}
		if rec.Dir && hasChildren(txn, path) && !recursive {
			return fs.Errorf(fs.ErrNotEmpty, p.String(), "directory is not empty")
		}

		if path == "/" {
			for _, name := range childNames(txn, path) {
				if err := deleteSubtree(txn, childPathOf(path, name)); err != nil {
					return err
				}
				if err := txn.Delete(keyChild(path, name)); err != nil {
					return err
				}
				removed = true
			}
			return nil
		}

		if err := deleteSubtree(txn, path); err != nil {
			return err
		}
		if err := txn.Delete(keyChild(parentOf(path), nameOf(path))); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// moveEntry rewrites every key of the entry at src to live under dst,
// recursing into directories. Must run inside an Update transaction.
func moveEntry(txn *badger.Txn, src, dst string, orig fs.Path) error {
	rec, err := getRecord(txn, src, orig)
	if err != nil {
		return err
	}
	if err := setRecord(txn, dst, rec); err != nil {
		return err
	}
	if err := txn.Delete(keyRecord(src)); err != nil {
		return err
	}

	if item, err := txn.Get(keyContent(src)); err == nil {
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(keyContent(dst), data); err != nil {
			return err
		}
		if err := txn.Delete(keyContent(src)); err != nil {
			return err
		}
	} else if err != badger.ErrKeyNotFound {
		return err
	}

	if rec.Dir {
		for _, name := range childNames(txn, src) {
			if err := txn.Delete(keyChild(src, name)); err != nil {
				return err
			}
			if err := txn.Set(keyChild(dst, name), nil); err != nil {
				return err
			}
			if err := moveEntry(txn, childPathOf(src, name), childPathOf(dst, name), orig); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenameAtomic moves src to dst in one transaction. It fails with
// ErrAlreadyExists when the destination is present; overwrite semantics live
// in the contract layer.
func (b *Badger) RenameAtomic(ctx context.Context, src, dst fs.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Statistics().IncrementWriteOps(1)

	srcPath, err := b.cleanPath(src)
	if err != nil {
		return err
	}
	dstPath, err := b.cleanPath(dst)
	if err != nil {
		return err
	}
	if srcPath == "/" {
		return fs.Errorf(fs.ErrInvalidPath, src.String(), "cannot rename the root directory")
	}
	if dstPath == "/" {
		return fs.Errorf(fs.ErrAlreadyExists, dst.String(), "destination is the root directory")
	}
	if strings.HasPrefix(dstPath, srcPath+"/") {
		return fs.Errorf(fs.ErrInvalidPath, dst.String(),
			"cannot rename %s under itself", src)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyRecord(dstPath)); err == nil {
			return fs.Errorf(fs.ErrAlreadyExists, dst.String(), "rename destination already exists")
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		dstParent := parentOf(dstPath)
		parentRec, err := getRecord(txn, dstParent, dst)
		if err != nil {
			return err
		}
		if !parentRec.Dir {
			return fs.Errorf(fs.ErrParentNotDirectory, dst.String(),
				"%s is not a directory", dstParent)
		}

		if err := moveEntry(txn, srcPath, dstPath, src); err != nil {
			return err
		}
		if err := txn.Delete(keyChild(parentOf(srcPath), nameOf(srcPath))); err != nil {
			return err
		}
		return txn.Set(keyChild(dstParent, nameOf(dstPath)), nil)
	})
}

// CreateFile opens a write stream at p. Existence and flag checks run at open
// time; the record and content commit in one transaction when the returned
// writer is closed.
func (b *Badger) CreateFile(ctx context.Context, p fs.Path, flags fs.CreateFlag, params *fs.CreateParameters) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.Statistics().IncrementWriteOps(1)

	path, err := b.cleanPath(p)
	if err != nil {
		return nil, err
	}
	if path == "/" {
		return nil, fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
	}

	w := &badgerWriter{
		fs:     b,
		path:   path,
		orig:   p,
		params: params,
	}

	err = b.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, path, p)
		if err != nil {
			if fs.IsNotFound(err) {
				if flags&fs.FlagCreate == 0 {
					return err
				}
				// Missing parents are created at commit time; here only
				// verify them when creation was not requested.
				if !params.CreateParent {
					return ensureParents(txn, path, params.Permission, false, p)
				}
				return nil
			}
			return err
		}
		if rec.Dir {
			return fs.Errorf(fs.ErrStructuralMismatch, p.String(), "is a directory")
		}
		switch {
		case flags&fs.FlagAppend != 0:
			item, err := txn.Get(keyContent(path))
			if err == nil {
				data, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				w.buf.Write(data)
			} else if err != badger.ErrKeyNotFound {
				return err
			}
		case flags&fs.FlagOverwrite != 0:
			// Truncate on close.
		default:
			return fs.Errorf(fs.ErrAlreadyExists, p.String(), "file already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// badgerWriter buffers writes and commits record plus content in one
// transaction on Close.
type badgerWriter struct {
	fs     *Badger
	path   string
	orig   fs.Path
	params *fs.CreateParameters
	buf    bytes.Buffer
	closed bool
}

func (w *badgerWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fs.Errorf(fs.ErrInvalidArgument, w.orig.String(), "write to closed file")
	}
	n, err := w.buf.Write(p)
	if n > 0 {
		w.fs.Statistics().AddBytesWritten(int64(n))
		if w.params.Progress != nil {
			w.params.Progress(int64(n))
		}
	}
	return n, err
}

func (w *badgerWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	return w.fs.db.Update(func(txn *badger.Txn) error {
		if rec, err := getRecord(txn, w.path, w.orig); err == nil && rec.Dir {
			return fs.Errorf(fs.ErrStructuralMismatch, w.orig.String(), "is a directory")
		} else if err != nil && !fs.IsNotFound(err) {
			return err
		}
		if err := ensureParents(txn, w.path, w.params.Permission, w.params.CreateParent, w.orig); err != nil {
			return err
		}
		if err := setRecord(txn, w.path, &fileRecord{
			Mode:        w.params.Permission,
			Size:        int64(w.buf.Len()),
			ModTimeNano: time.Now().UnixNano(),
		}); err != nil {
			return err
		}
		if err := txn.Set(keyContent(w.path), w.buf.Bytes()); err != nil {
			return err
		}
		return txn.Set(keyChild(parentOf(w.path), nameOf(w.path)), nil)
	})
}
