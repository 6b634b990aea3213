package fs

import "context"

// Rename moves src to dst, optionally overwriting an existing destination.
//
// Backends that implement OverwriteRenamer own the whole operation; for all
// others Rename runs the default protocol:
//
//  1. Fetch src's link status; fail ErrNotFound if absent.
//  2. Probe dst's link status; a NotFound result means "destination absent".
//  3. If the destination exists:
//     fail ErrAlreadyExists if dst equals src, or if src is a symlink whose
//     target equals dst; fail ErrStructuralMismatch if exactly one of the
//     two is a directory; fail ErrAlreadyExists if overwrite is false; fail
//     ErrNotEmpty if dst is a directory with any entry; otherwise delete dst
//     non-recursively.
//  4. If the destination is absent: fetch dst's parent status and fail
//     ErrParentNotDirectory if the parent is a plain file.
//  5. Invoke the backend's atomic single-rename primitive on (src, dst).
//
// Steps 1-4 are advisory checks performed without cross-step locking. A
// concurrent mutation between a check and the final rename can still surface
// as a backend-level failure at step 5; the outcome of concurrent renames
// targeting the same destination is whatever the backend's atomic primitive
// decides. Backends wanting end-to-end atomicity implement OverwriteRenamer.
func Rename(ctx context.Context, b Backend, src, dst Path, overwrite bool) error {
	if or, ok := b.(OverwriteRenamer); ok {
		return or.RenameOverwrite(ctx, src, dst, overwrite)
	}

	if err := CheckPath(b, src); err != nil {
		return err
	}
	if err := CheckPath(b, dst); err != nil {
		return err
	}

	srcStatus, err := b.LinkStatus(ctx, src)
	if err != nil {
		return err
	}

	dstStatus, err := statusIfPresent(b.LinkStatus(ctx, dst))
	if err != nil {
		return err
	}

	if dstStatus != nil {
		if dst.Equal(src) {
			return Errorf(ErrAlreadyExists, dst.String(),
				"the source %s and destination are the same", src)
		}
		if srcStatus.IsSymlink() && srcStatus.Symlink.Equal(dst) {
			return Errorf(ErrAlreadyExists, dst.String(),
				"cannot rename symlink %s to its target", src)
		}
		// Renaming a file to a symlink and vice versa is allowed; a
		// directory may only replace a directory.
		if srcStatus.IsDir != dstStatus.IsDir {
			return Errorf(ErrStructuralMismatch, dst.String(),
				"source %s and destination must both be directories or both not", src)
		}
		if !overwrite {
			return Errorf(ErrAlreadyExists, dst.String(), "rename destination already exists")
		}
		if dstStatus.IsDir {
			entries, err := b.List(ctx, dst)
			if err != nil {
				return err
			}
			if len(entries) > 0 {
				return Errorf(ErrNotEmpty, dst.String(),
					"rename cannot overwrite non-empty destination directory")
			}
		}
		if _, err := b.Delete(ctx, dst, false); err != nil {
			return err
		}
	} else if parent, ok := dst.Parent(); ok {
		parentStatus, err := b.Status(ctx, parent)
		if err != nil {
			return err
		}
		if parentStatus.IsFile() {
			return Errorf(ErrParentNotDirectory, parent.String(),
				"rename destination parent is a file")
		}
	}

	return b.RenameAtomic(ctx, src, dst)
}

// statusIfPresent turns an ErrNotFound-coded status lookup into a nil status
// so absence is a first-class value. Any other error still aborts the
// caller; this is deliberately stricter than treating every failure as
// "absent", which would let transport errors masquerade as missing files.
func statusIfPresent(status *FileStatus, err error) (*FileStatus, error) {
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return status, nil
}
