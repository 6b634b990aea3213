package fs

// ProgressFunc is an optional sink notified as bytes are written by a create
// operation. Backends invoke it best-effort; it must not block.
type ProgressFunc func(written int64)

// optionKind discriminates the create-option variants. At most one option of
// each kind may appear in a create call.
type optionKind int

const (
	optBlockSize optionKind = iota
	optBufferSize
	optReplication
	optBytesPerChecksum
	optChecksum
	optPermission
	optProgress
	optCreateParent
	numOptionKinds
)

func (k optionKind) String() string {
	switch k {
	case optBlockSize:
		return "BlockSize"
	case optBufferSize:
		return "BufferSize"
	case optReplication:
		return "ReplicationFactor"
	case optBytesPerChecksum:
		return "BytesPerChecksum"
	case optChecksum:
		return "Checksum"
	case optPermission:
		return "Permission"
	case optProgress:
		return "Progress"
	case optCreateParent:
		return "CreateParent"
	default:
		return "Unknown"
	}
}

// CreateOption is one creation parameter supplied by the caller. Options are
// constructed with the helper functions below and merged with the backend's
// server defaults by the create operation.
type CreateOption struct {
	kind     optionKind
	intVal   int64
	checksum ChecksumPolicy
	progress ProgressFunc
	flag     bool
}

// BlockSize sets the block size for the created file.
func BlockSize(n int64) CreateOption {
	return CreateOption{kind: optBlockSize, intVal: n}
}

// BufferSize sets the write buffer size.
func BufferSize(n int) CreateOption {
	return CreateOption{kind: optBufferSize, intVal: int64(n)}
}

// ReplicationFactor sets the replication factor.
func ReplicationFactor(n int) CreateOption {
	return CreateOption{kind: optReplication, intVal: int64(n)}
}

// BytesPerChecksum sets the checksum chunk size. When both this and
// Checksum are supplied, this value wins over the one embedded in the
// checksum policy.
func BytesPerChecksum(n int) CreateOption {
	return CreateOption{kind: optBytesPerChecksum, intVal: int64(n)}
}

// Checksum sets an explicit checksum policy. Zero-valued fields of the
// policy are filled from server defaults.
func Checksum(p ChecksumPolicy) CreateOption {
	return CreateOption{kind: optChecksum, checksum: p}
}

// Permission sets the absolute permission bits for the created file.
// Permission is mandatory: create fails if the caller omits it.
func Permission(mode uint32) CreateOption {
	return CreateOption{kind: optPermission, intVal: int64(mode)}
}

// Progress attaches a progress sink to the create operation.
func Progress(fn ProgressFunc) CreateOption {
	return CreateOption{kind: optProgress, progress: fn}
}

// CreateParent requests that missing parent directories be created. The
// default is false: a missing parent fails the create.
func CreateParent(create bool) CreateOption {
	return CreateOption{kind: optCreateParent, flag: create}
}

// CreateParameters is the immutable, fully resolved parameter bundle handed
// to a backend's CreateFile primitive. Every field has been defaulted from
// server defaults and validated; backends use it as-is.
type CreateParameters struct {
	Permission   uint32
	BufferSize   int
	Replication  int
	BlockSize    int64
	Progress     ProgressFunc
	Checksum     ChecksumPolicy
	CreateParent bool
}

// resolveCreateOptions merges caller-supplied creation options with the
// backend's server defaults into one validated parameter set.
//
// The option set is scanned once; any option kind appearing more than once
// is rejected before defaulting, regardless of value equality. Permission
// must be supplied by the caller and is never defaulted.
//
// Checksum resolution starts from the server defaults, overrides with an
// explicit checksum policy if one was given, then overrides the
// bytes-per-checksum specifically if an explicit BytesPerChecksum option was
// given independent of the policy.
func resolveCreateOptions(path Path, defaults ServerDefaults, opts []CreateOption) (*CreateParameters, error) {
	var seen [numOptionKinds]bool

	blockSize := int64(-1)
	bufferSize := -1
	replication := -1
	bytesPerChecksum := -1
	var checksum *ChecksumPolicy
	var permission uint32
	var progress ProgressFunc
	createParent := false

	for _, opt := range opts {
		if opt.kind < 0 || opt.kind >= numOptionKinds {
			return nil, Errorf(ErrInvalidArgument, path.String(), "unknown create option")
		}
		if seen[opt.kind] {
			return nil, Errorf(ErrInvalidArgument, path.String(),
				"%s option is set multiple times", opt.kind)
		}
		seen[opt.kind] = true

		switch opt.kind {
		case optBlockSize:
			blockSize = opt.intVal
		case optBufferSize:
			bufferSize = int(opt.intVal)
		case optReplication:
			replication = int(opt.intVal)
		case optBytesPerChecksum:
			bytesPerChecksum = int(opt.intVal)
		case optChecksum:
			c := opt.checksum
			checksum = &c
		case optPermission:
			permission = uint32(opt.intVal)
		case optProgress:
			progress = opt.progress
		case optCreateParent:
			createParent = opt.flag
		}
	}

	if !seen[optPermission] {
		return nil, Errorf(ErrInvalidArgument, path.String(), "no permission supplied")
	}

	if defaults.BytesPerChecksum <= 0 ||
		defaults.BlockSize%int64(defaults.BytesPerChecksum) != 0 {
		return nil, Errorf(ErrInternal, path.String(),
			"server default block size %d is not a multiple of default bytes per checksum %d",
			defaults.BlockSize, defaults.BytesPerChecksum)
	}

	if blockSize == -1 {
		blockSize = defaults.BlockSize
	}
	if bufferSize == -1 {
		bufferSize = defaults.FileBufferSize
	}
	if replication == -1 {
		replication = defaults.Replication
	}

	policy := ChecksumPolicy{
		Algorithm:        defaults.ChecksumAlgorithm,
		BytesPerChecksum: defaults.BytesPerChecksum,
	}
	if checksum != nil {
		if checksum.Algorithm != "" {
			policy.Algorithm = checksum.Algorithm
		}
		if checksum.BytesPerChecksum > 0 {
			policy.BytesPerChecksum = checksum.BytesPerChecksum
		}
	}
	// An explicit bytes-per-checksum always wins over one embedded in an
	// explicit checksum policy.
	if bytesPerChecksum != -1 {
		policy.BytesPerChecksum = bytesPerChecksum
	}

	if policy.BytesPerChecksum <= 0 || blockSize%int64(policy.BytesPerChecksum) != 0 {
		return nil, Errorf(ErrInvalidArgument, path.String(),
			"block size %d is not a multiple of bytes per checksum %d",
			blockSize, policy.BytesPerChecksum)
	}

	return &CreateParameters{
		Permission:   permission,
		BufferSize:   bufferSize,
		Replication:  replication,
		BlockSize:    blockSize,
		Progress:     progress,
		Checksum:     policy,
		CreateParent: createParent,
	}, nil
}
