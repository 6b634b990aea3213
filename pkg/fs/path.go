package fs

import (
	"net/url"
	"strconv"
	"strings"
)

// Separator separates path segments.
const Separator = "/"

// schemeSeparator may not appear inside a path segment; a segment containing
// it would be ambiguous with a scheme-qualified path.
const schemeSeparator = ":"

// Path names a file or directory, optionally qualified with the scheme and
// authority of the filesystem it belongs to.
//
// A path with no embedded scheme and authority is interpreted as relative to
// the backend it is handed to; it must still be absolute (start with "/") to
// pass validation. Query and fragment remnants of the raw URI are discarded
// at parse time.
type Path struct {
	scheme    string
	authority string
	path      string
}

// ParsePath parses a raw path or URI string into a Path.
func ParsePath(raw string) (Path, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Path{}, Errorf(ErrInvalidPath, raw, "malformed path: %v", err)
	}
	p := u.Path
	// Opaque URIs ("scheme:segment") carry their content in Opaque.
	if p == "" && u.Opaque != "" {
		p = u.Opaque
	}
	return Path{scheme: u.Scheme, authority: u.Host, path: p}, nil
}

// NewPath builds an unqualified Path from a plain slash-separated name.
func NewPath(p string) Path {
	return Path{path: p}
}

// qualified returns a copy of p carrying the given identity's scheme and
// authority explicitly.
func (p Path) qualified(id Identity) Path {
	return Path{scheme: id.Scheme(), authority: id.Authority(), path: p.path}
}

// Scheme returns the embedded scheme, or "" when the path is unqualified.
func (p Path) Scheme() string { return p.scheme }

// Authority returns the embedded authority, or "" when absent.
func (p Path) Authority() string { return p.authority }

// PathPart returns the slash-separated segment portion of the path.
func (p Path) PathPart() string { return p.path }

// host returns the host part of the embedded authority without any port.
func (p Path) host() string {
	if i := strings.LastIndexByte(p.authority, ':'); i >= 0 {
		return p.authority[:i]
	}
	return p.authority
}

// port returns the embedded authority's port, or -1 when unspecified.
func (p Path) port() int {
	i := strings.LastIndexByte(p.authority, ':')
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(p.authority[i+1:])
	if err != nil {
		return -1
	}
	return n
}

// IsAbsolute reports whether the segment portion starts at the root.
func (p Path) IsAbsolute() bool {
	return strings.HasPrefix(p.path, Separator)
}

// Name returns the final segment of the path, or "" for the root.
func (p Path) Name() string {
	trimmed := strings.TrimSuffix(p.path, Separator)
	if i := strings.LastIndex(trimmed, Separator); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// Parent returns the path of the containing directory. The second return is
// false when p is the root (or empty) and has no parent.
func (p Path) Parent() (Path, bool) {
	trimmed := strings.TrimSuffix(p.path, Separator)
	if trimmed == "" {
		return Path{}, false
	}
	i := strings.LastIndex(trimmed, Separator)
	if i < 0 {
		return Path{}, false
	}
	parent := trimmed[:i]
	if parent == "" {
		parent = Separator
	}
	return Path{scheme: p.scheme, authority: p.authority, path: parent}, true
}

// Child returns the path of the named entry inside p, carrying over p's
// scheme and authority.
func (p Path) Child(name string) Path {
	base := strings.TrimSuffix(p.path, Separator)
	return Path{scheme: p.scheme, authority: p.authority, path: base + Separator + name}
}

// Equal reports whether two paths name the same entry. Schemes compare
// case-insensitively, authorities and segments exactly.
func (p Path) Equal(other Path) bool {
	return strings.EqualFold(p.scheme, other.scheme) &&
		p.authority == other.authority &&
		p.path == other.path
}

// String renders the path, including scheme and authority when present.
func (p Path) String() string {
	switch {
	case p.scheme != "":
		return p.scheme + "://" + p.authority + p.path
	case p.authority != "":
		return "//" + p.authority + p.path
	default:
		return p.path
	}
}

// IsValidName reports whether the given path part contains only structurally
// safe segments. It rejects any segment equal to "." or ".." and any segment
// containing the scheme separator, independent of identity matching.
func IsValidName(src string) bool {
	for _, segment := range strings.Split(src, Separator) {
		if segment == "" {
			continue
		}
		if segment == "." || segment == ".." || strings.Contains(segment, schemeSeparator) {
			return false
		}
	}
	return true
}
