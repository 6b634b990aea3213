package fs

import (
	"context"
	"io"
	"strings"
)

// CreateFlag controls how CreateFile treats an existing destination.
type CreateFlag int

const (
	// FlagCreate fails the create when the file already exists
	FlagCreate CreateFlag = 1 << iota

	// FlagOverwrite truncates an existing file
	FlagOverwrite

	// FlagAppend appends to an existing file
	FlagAppend
)

// Backend is the fixed capability interface every pluggable filesystem
// implements. The contract layer calls backends only through this interface
// (plus the optional capability interfaces in capability.go).
//
// Paths passed to a backend are either fully qualified URIs matching the
// backend's identity or slash-absolute names relative to its root; every
// contract-layer operation validates this before touching a primitive.
//
// Implementations must be safe for concurrent use by multiple goroutines.
// Cancellation and timeout semantics are the backend's responsibility; the
// contract layer never retries a failed primitive.
type Backend interface {
	// Identity returns the backend's normalized identity.
	Identity() Identity

	// DefaultPort returns the default port of the backend's scheme, or -1
	// when the scheme has no notion of a port.
	DefaultPort() int

	// SupportsSymlinks reports whether the backend stores symbolic links.
	SupportsSymlinks() bool

	// ServerDefaults returns backend-supplied defaults for the given path.
	ServerDefaults(ctx context.Context, p Path) (ServerDefaults, error)

	// Status returns the status of the entry at p, following a final
	// symlink. Absence is an ErrNotFound-coded error.
	Status(ctx context.Context, p Path) (*FileStatus, error)

	// LinkStatus is Status without following a final symlink. Backends
	// without symlink support implement it as Status.
	LinkStatus(ctx context.Context, p Path) (*FileStatus, error)

	// List returns the entries of the directory at p.
	List(ctx context.Context, p Path) ([]FileStatus, error)

	// Delete removes the entry at p. A non-recursive delete of a non-empty
	// directory fails with ErrNotEmpty. The bool reports whether anything
	// was removed.
	Delete(ctx context.Context, p Path, recursive bool) (bool, error)

	// Mkdir creates the directory at p with the given permission bits,
	// creating missing parents when createParent is true.
	Mkdir(ctx context.Context, p Path, permission uint32, createParent bool) error

	// RenameAtomic is the backend's atomic single-rename primitive. It
	// fails if the destination exists; overwrite semantics live in the
	// contract layer's Rename protocol.
	RenameAtomic(ctx context.Context, src, dst Path) error

	// CreateFile opens a write stream at p using fully resolved create
	// parameters. Callers go through Create, which resolves options first.
	CreateFile(ctx context.Context, p Path, flags CreateFlag, params *CreateParameters) (io.WriteCloser, error)

	// Open opens a read stream with the given buffer size.
	Open(ctx context.Context, p Path, bufferSize int) (io.ReadCloser, error)
}

// Base carries the state every backend shares: the normalized identity and
// the shared statistics record for its (scheme, authority) pair. Backends
// embed it and construct it with NewBase.
type Base struct {
	identity    Identity
	defaultPort int
	stats       *Statistics
}

// NewBase normalizes the raw URI into the backend's identity and attaches
// the shared statistics record from the given registry. The registry may be
// nil, in which case the backend gets a private, unregistered record.
func NewBase(rawURI, supportedScheme string, authorityNeeded bool, defaultPort int, stats *StatsRegistry) (Base, error) {
	id, err := NewIdentity(rawURI, supportedScheme, authorityNeeded, defaultPort)
	if err != nil {
		return Base{}, err
	}
	var record *Statistics
	if stats != nil {
		record = stats.Get(id)
	} else {
		record = newStatistics(id.Scheme())
	}
	return Base{identity: id, defaultPort: defaultPort, stats: record}, nil
}

// Identity returns the backend's normalized identity.
func (b *Base) Identity() Identity { return b.identity }

// DefaultPort returns the default port declared at construction.
func (b *Base) DefaultPort() int { return b.defaultPort }

// Statistics returns the shared statistics record for this backend's
// (scheme, authority) pair.
func (b *Base) Statistics() *Statistics { return b.stats }

// CheckPath checks that a path belongs to the given backend.
//
// A path with no embedded scheme and no embedded authority is valid only if
// it is absolute. A path with an authority but no scheme is always invalid.
// Otherwise the scheme must match case-insensitively, hosts must match (a
// null host on the backend side matches only a null host on the path side),
// and ports must match after substituting the backend's default port for an
// unspecified port on either side.
func CheckPath(b Backend, p Path) error {
	if p.Scheme() == "" {
		if p.Authority() == "" {
			if p.IsAbsolute() {
				return nil
			}
			return Errorf(ErrInvalidPath, p.String(), "relative paths not allowed")
		}
		return Errorf(ErrInvalidPath, p.String(), "path without scheme with non-null authority")
	}

	id := b.Identity()
	thisHost := id.Host()
	thatHost := p.host()

	if !strings.EqualFold(id.Scheme(), p.Scheme()) ||
		(thisHost != "" && !strings.EqualFold(thisHost, thatHost)) ||
		(thisHost == "" && thatHost != "") {
		return Errorf(ErrInvalidPath, p.String(), "wrong filesystem, expected %s", id)
	}

	thisPort := id.Port()
	if thisPort == -1 {
		thisPort = b.DefaultPort()
	}
	thatPort := p.port()
	if thatPort == -1 {
		thatPort = b.DefaultPort()
	}
	if thisPort != thatPort {
		return Errorf(ErrInvalidPath, p.String(),
			"wrong filesystem, port %d does not match %s with port %d", thatPort, id, thisPort)
	}
	return nil
}

// URIPath validates p against the backend and returns its segment portion.
// It fails with ErrInvalidPath when the path belongs to another filesystem
// or contains structurally unsafe segments.
func URIPath(b Backend, p Path) (string, error) {
	if err := CheckPath(b, p); err != nil {
		return "", err
	}
	s := p.PathPart()
	if !IsValidName(s) {
		return "", Errorf(ErrInvalidPath, p.String(), "path part %q is not a valid name", s)
	}
	return s, nil
}

// MakeQualified validates p against the backend and rewrites it to carry the
// backend's scheme and authority explicitly.
func MakeQualified(b Backend, p Path) (Path, error) {
	if err := CheckPath(b, p); err != nil {
		return Path{}, err
	}
	return p.qualified(b.Identity()), nil
}

// Create validates the path, resolves the caller's options against the
// backend's server defaults, and opens a write stream via the backend's
// CreateFile primitive. Permission is mandatory; see the option constructors
// in options.go.
func Create(ctx context.Context, b Backend, p Path, flags CreateFlag, opts ...CreateOption) (io.WriteCloser, error) {
	if err := CheckPath(b, p); err != nil {
		return nil, err
	}
	defaults, err := b.ServerDefaults(ctx, p)
	if err != nil {
		return nil, err
	}
	params, err := resolveCreateOptions(p, defaults, opts)
	if err != nil {
		return nil, err
	}
	return b.CreateFile(ctx, p, flags, params)
}

// Open opens a read stream using the backend's default buffer size.
func Open(ctx context.Context, b Backend, p Path) (io.ReadCloser, error) {
	if err := CheckPath(b, p); err != nil {
		return nil, err
	}
	defaults, err := b.ServerDefaults(ctx, p)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, p, defaults.FileBufferSize)
}

// ResolvePath validates p and returns the fully qualified path the backend
// reports for it.
func ResolvePath(ctx context.Context, b Backend, p Path) (Path, error) {
	if err := CheckPath(b, p); err != nil {
		return Path{}, err
	}
	status, err := b.Status(ctx, p)
	if err != nil {
		return Path{}, err
	}
	return status.Path, nil
}
