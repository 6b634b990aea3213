// Package badgerfs provides a persistent reference backend on BadgerDB.
//
// The whole tree, metadata and content, lives in one embedded key-value
// database (see keys.go for the schema). The backend is suitable for
// single-node deployments that need the tree to survive restarts; every
// mutating operation commits in a single transaction, so the atomic rename
// primitive is atomic by construction.
package badgerfs

import (
	"context"
	"fmt"
	gopath "path"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/driftfs/driftfs/pkg/fs"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "drift"

// Server defaults reported for every path.
const (
	defaultBlockSize        = 64 * 1024 * 1024
	defaultBytesPerChecksum = 512
	defaultFileBufferSize   = 65536
	defaultReplication      = 1
)

// Config contains configuration for creating a BadgerDB backend.
type Config struct {
	// DBPath is the directory where BadgerDB stores its files. Ignored when
	// InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without any on-disk state. Used by tests and
	// ephemeral deployments.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64).
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
}

// Badger implements fs.Backend on an embedded BadgerDB database.
//
// BadgerDB transactions provide the concurrency control; the backend holds no
// locks of its own. Every mutation runs in one Update transaction, so readers
// observe either the old or the new tree, never an intermediate state.
type Badger struct {
	fs.Base
	db *badger.DB
}

// New opens (or creates) the database and ensures the root record exists.
func New(ctx context.Context, rawURI string, cfg Config, stats *fs.StatsRegistry) (*Badger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := fs.NewBase(rawURI, Scheme, false, -1, stats)
	if err != nil {
		return nil, err
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}

	opts := badger.DefaultOptions(cfg.DBPath).
		WithInMemory(cfg.InMemory).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	b := &Badger{Base: base, db: db}
	if err := b.initializeRoot(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize root record: %w", err)
	}
	return b, nil
}

// FactoryWithConfig binds a decoded configuration to the registry's factory
// signature.
func FactoryWithConfig(cfg Config) fs.Factory {
	return func(ctx context.Context, rawURI string, stats *fs.StatsRegistry) (fs.Backend, error) {
		return New(ctx, rawURI, cfg, stats)
	}
}

// Close releases the database. The backend is unusable afterward.
func (b *Badger) Close() error {
	return b.db.Close()
}

// initializeRoot writes the root directory record if the database is fresh.
func (b *Badger) initializeRoot() error {
	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyRecord("/"))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		data, err := encodeRecord(&fileRecord{
			Dir:         true,
			Mode:        0755,
			ModTimeNano: time.Now().UnixNano(),
		})
		if err != nil {
			return err
		}
		return txn.Set(keyRecord("/"), data)
	})
}

// SupportsSymlinks reports that symbolic links are not stored.
func (b *Badger) SupportsSymlinks() bool { return false }

// ServerDefaults returns the static defaults of the BadgerDB backend.
func (b *Badger) ServerDefaults(_ context.Context, _ fs.Path) (fs.ServerDefaults, error) {
	return fs.ServerDefaults{
		BlockSize:         defaultBlockSize,
		BytesPerChecksum:  defaultBytesPerChecksum,
		ChecksumAlgorithm: fs.ChecksumCRC32,
		FileBufferSize:    defaultFileBufferSize,
		Replication:       defaultReplication,
	}, nil
}

// cleanPath validates p against this backend and returns its clean,
// slash-absolute name. The root is "/".
func (b *Badger) cleanPath(p fs.Path) (string, error) {
	pathPart, err := fs.URIPath(b, p)
	if err != nil {
		return "", err
	}
	return gopath.Clean("/" + strings.TrimPrefix(pathPart, "/")), nil
}

// parentOf returns the containing directory of a clean absolute path.
func parentOf(p string) string {
	parent := gopath.Dir(p)
	if parent == "" {
		return "/"
	}
	return parent
}

// nameOf returns the final segment of a clean absolute path.
func nameOf(p string) string {
	return gopath.Base(p)
}

// getRecord fetches and decodes the record at the given clean path. A missing
// key maps to ErrNotFound carrying the caller's original path.
func getRecord(txn *badger.Txn, path string, orig fs.Path) (*fileRecord, error) {
	item, err := txn.Get(keyRecord(path))
	if err == badger.ErrKeyNotFound {
		return nil, fs.Errorf(fs.ErrNotFound, orig.String(), "no such file or directory")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", path, err)
	}
	var rec *fileRecord
	err = item.Value(func(val []byte) error {
		rec, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// setRecord encodes and writes the record at the given clean path.
func setRecord(txn *badger.Txn, path string, rec *fileRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return txn.Set(keyRecord(path), data)
}

// status builds the FileStatus for a record at a clean path.
func (b *Badger) status(path string, rec *fileRecord) fs.FileStatus {
	qualified, _ := fs.MakeQualified(b, fs.NewPath(path))
	return fs.FileStatus{
		Path:        qualified,
		Size:        rec.Size,
		Mode:        rec.Mode,
		IsDir:       rec.Dir,
		Replication: defaultReplication,
		BlockSize:   defaultBlockSize,
		ModTime:     time.Unix(0, rec.ModTimeNano),
	}
}
