package fs

import "context"

// Capability names an optional feature a backend may implement beyond the
// fixed Backend interface. Absence of a capability is a query result (see
// Supports), not a runtime surprise: the helper functions below return an
// ErrUnsupported-coded error naming the capability and the backend type when
// the backend does not implement it.
type Capability string

const (
	CapabilitySymlinks      Capability = "symlinks"
	CapabilityXAttrs        Capability = "xattrs"
	CapabilitySnapshots     Capability = "snapshots"
	CapabilityStoragePolicy Capability = "storage-policy"

	// CapabilityRenameOverride marks a backend that supplies its own
	// end-to-end rename-with-overwrite, replacing the default non-atomic
	// protocol entirely.
	CapabilityRenameOverride Capability = "rename-override"
)

// SymlinkBackend is implemented by backends that store symbolic links.
type SymlinkBackend interface {
	CreateSymlink(ctx context.Context, target, link Path, createParent bool) error
	LinkTarget(ctx context.Context, p Path) (Path, error)
}

// XAttrBackend is implemented by backends that store extended attributes.
type XAttrBackend interface {
	SetXAttr(ctx context.Context, p Path, name string, value []byte) error
	GetXAttr(ctx context.Context, p Path, name string) ([]byte, error)
	ListXAttrs(ctx context.Context, p Path) ([]string, error)
	RemoveXAttr(ctx context.Context, p Path, name string) error
}

// SnapshotBackend is implemented by backends that support snapshots.
type SnapshotBackend interface {
	CreateSnapshot(ctx context.Context, p Path, name string) (Path, error)
	RenameSnapshot(ctx context.Context, p Path, oldName, newName string) error
	DeleteSnapshot(ctx context.Context, p Path, name string) error
}

// StoragePolicyBackend is implemented by backends with per-path storage
// policies (tiering, placement).
type StoragePolicyBackend interface {
	SetStoragePolicy(ctx context.Context, p Path, policy string) error
	StoragePolicy(ctx context.Context, p Path) (string, error)
}

// OverwriteRenamer is implemented by backends that own the whole
// rename-with-overwrite operation atomically. Rename dispatches to it
// instead of running the default advisory-check protocol.
type OverwriteRenamer interface {
	RenameOverwrite(ctx context.Context, src, dst Path, overwrite bool) error
}

// Supports probes whether the backend implements the given capability.
func Supports(b Backend, c Capability) bool {
	switch c {
	case CapabilitySymlinks:
		return b.SupportsSymlinks()
	case CapabilityXAttrs:
		_, ok := b.(XAttrBackend)
		return ok
	case CapabilitySnapshots:
		_, ok := b.(SnapshotBackend)
		return ok
	case CapabilityStoragePolicy:
		_, ok := b.(StoragePolicyBackend)
		return ok
	case CapabilityRenameOverride:
		_, ok := b.(OverwriteRenamer)
		return ok
	default:
		return false
	}
}

// UnsupportedError builds the error returned when an optional capability
// method is invoked on a backend that declined to implement it.
func UnsupportedError(b Backend, op string) error {
	return Errorf(ErrUnsupported, "", "%T does not support %s", b, op)
}

// CreateSymlink creates a symbolic link at link pointing to target, or fails
// with ErrUnsupported when the backend has no symlink support.
func CreateSymlink(ctx context.Context, b Backend, target, link Path, createParent bool) error {
	sb, ok := b.(SymlinkBackend)
	if !ok || !b.SupportsSymlinks() {
		return UnsupportedError(b, "symlinks")
	}
	if err := CheckPath(b, link); err != nil {
		return err
	}
	return sb.CreateSymlink(ctx, target, link, createParent)
}

// SetXAttr sets an extended attribute, or fails with ErrUnsupported.
func SetXAttr(ctx context.Context, b Backend, p Path, name string, value []byte) error {
	xb, ok := b.(XAttrBackend)
	if !ok {
		return UnsupportedError(b, "xattrs")
	}
	if err := CheckPath(b, p); err != nil {
		return err
	}
	return xb.SetXAttr(ctx, p, name, value)
}

// GetXAttr reads an extended attribute, or fails with ErrUnsupported.
func GetXAttr(ctx context.Context, b Backend, p Path, name string) ([]byte, error) {
	xb, ok := b.(XAttrBackend)
	if !ok {
		return nil, UnsupportedError(b, "xattrs")
	}
	if err := CheckPath(b, p); err != nil {
		return nil, err
	}
	return xb.GetXAttr(ctx, p, name)
}

// CreateSnapshot snapshots the subtree at p, or fails with ErrUnsupported.
func CreateSnapshot(ctx context.Context, b Backend, p Path, name string) (Path, error) {
	sb, ok := b.(SnapshotBackend)
	if !ok {
		return Path{}, UnsupportedError(b, "snapshots")
	}
	if err := CheckPath(b, p); err != nil {
		return Path{}, err
	}
	return sb.CreateSnapshot(ctx, p, name)
}

// SetStoragePolicy assigns a storage policy, or fails with ErrUnsupported.
func SetStoragePolicy(ctx context.Context, b Backend, p Path, policy string) error {
	spb, ok := b.(StoragePolicyBackend)
	if !ok {
		return UnsupportedError(b, "storage policies")
	}
	if err := CheckPath(b, p); err != nil {
		return err
	}
	return spb.SetStoragePolicy(ctx, p, policy)
}
