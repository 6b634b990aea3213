package fs

import (
	"net/url"
	"strconv"
	"strings"
)

// Identity is the normalized (scheme, authority, port) triple that uniquely
// names one backend filesystem.
//
// An Identity is immutable once constructed and is owned exclusively by the
// backend instance it was built for. Two backends address the same
// filesystem if and only if their identities are equal.
type Identity struct {
	scheme    string
	authority string
	port      int
}

// NewIdentity canonicalizes a raw filesystem URI at backend construction
// time.
//
// Normalization rules:
//   - The raw scheme must be present and case-sensitively equal
//     supportedScheme.
//   - A backend that requires an authority must declare a non-negative
//     default port; violating this is a construction-time programmer error
//     and yields an ErrInternal-coded error.
//   - If the authority is absent the canonical form is "scheme:///" (only
//     valid when authorityNeeded is false).
//   - If the authority is present the port resolves to the explicit port if
//     given, else the default port. When neither exists the canonical form
//     keeps scheme and authority as given; otherwise it is
//     "scheme://host:port".
//
// The path, query and fragment of the raw URI are discarded.
func NewIdentity(rawURI, supportedScheme string, authorityNeeded bool, defaultPort int) (Identity, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return Identity{}, Errorf(ErrInvalidArgument, rawURI, "malformed uri: %v", err)
	}
	if u.Scheme == "" {
		return Identity{}, Errorf(ErrInvalidArgument, rawURI, "uri without scheme")
	}
	if u.Scheme != supportedScheme {
		return Identity{}, Errorf(ErrInvalidArgument, rawURI,
			"uri scheme %q does not match the backend scheme %q", u.Scheme, supportedScheme)
	}

	// A backend that requires an authority must always declare a default
	// port.
	if defaultPort < 0 && authorityNeeded {
		return Identity{}, Errorf(ErrInternal, rawURI,
			"backend implementation error: default port %d is not valid", defaultPort)
	}

	if u.Host == "" {
		if authorityNeeded {
			return Identity{}, Errorf(ErrInvalidArgument, rawURI, "uri without authority")
		}
		return Identity{scheme: supportedScheme, authority: "", port: -1}, nil
	}

	port := -1
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 0 {
			return Identity{}, Errorf(ErrInvalidArgument, rawURI, "invalid port %q", p)
		}
	}
	if port == -1 {
		port = defaultPort
	}
	if port == -1 {
		// No port supplied and the backend declares no default: keep the
		// authority exactly as given.
		return Identity{scheme: supportedScheme, authority: u.Host, port: -1}, nil
	}
	return Identity{
		scheme:    supportedScheme,
		authority: u.Hostname() + ":" + strconv.Itoa(port),
		port:      port,
	}, nil
}

// Scheme returns the identity's scheme.
func (id Identity) Scheme() string { return id.scheme }

// Authority returns the identity's authority ("host:port" once a port is
// resolved) or the empty string for authority-less filesystems.
func (id Identity) Authority() string { return id.authority }

// Host returns the host part of the authority without any port.
func (id Identity) Host() string {
	if i := strings.LastIndexByte(id.authority, ':'); i >= 0 {
		return id.authority[:i]
	}
	return id.authority
}

// Port returns the resolved port, or -1 when no port applies.
func (id Identity) Port() int { return id.port }

// Equal reports whether two identities name the same filesystem.
func (id Identity) Equal(other Identity) bool {
	return id.scheme == other.scheme &&
		id.authority == other.authority &&
		id.port == other.port
}

// String renders the canonical URI form of the identity.
func (id Identity) String() string {
	if id.authority == "" {
		return id.scheme + ":///"
	}
	return id.scheme + "://" + id.authority
}

// statsKey is the Statistics Registry key for this identity: scheme plus
// authority host, ignoring path and port. Authority-less identities use the
// root marker.
func (id Identity) statsKey() string {
	if id.authority == "" {
		return id.scheme + ":///"
	}
	return id.scheme + "://" + id.Host()
}
