package fs

import "time"

// FileStatus describes one file, directory, or symlink as reported by a
// backend. The Path is fully qualified with the backend's identity.
type FileStatus struct {
	// Path is the fully qualified path of the entry
	Path Path

	// Size is the length in bytes (0 for directories)
	Size int64

	// Mode holds the Unix permission bits (e.g. 0644)
	Mode uint32

	// IsDir is true for directories
	IsDir bool

	// Symlink is the link target when the entry is a symbolic link, nil
	// otherwise. Populated by LinkStatus; Status follows the link instead.
	Symlink *Path

	// Replication is the replication factor (1 for backends without
	// replication)
	Replication int

	// BlockSize is the block size the entry was written with
	BlockSize int64

	// ModTime is the last modification time
	ModTime time.Time

	// Owner and Group identify the owning principal, when the backend
	// tracks ownership
	Owner string
	Group string
}

// IsSymlink reports whether the entry is a symbolic link.
func (s *FileStatus) IsSymlink() bool {
	return s.Symlink != nil
}

// IsFile reports whether the entry is a plain file.
func (s *FileStatus) IsFile() bool {
	return !s.IsDir && s.Symlink == nil
}
