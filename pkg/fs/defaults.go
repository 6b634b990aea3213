package fs

// ChecksumAlgorithm names the checksum kind a backend computes per
// bytes-per-checksum chunk.
type ChecksumAlgorithm string

const (
	ChecksumNone   ChecksumAlgorithm = "none"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"
	ChecksumCRC32C ChecksumAlgorithm = "crc32c"
)

// ChecksumPolicy is the resolved checksum configuration for one create
// operation. BytesPerChecksum must evenly divide the block size.
type ChecksumPolicy struct {
	Algorithm        ChecksumAlgorithm
	BytesPerChecksum int
}

// ServerDefaults is the set of backend-supplied default configuration
// values used to fill in create options the caller did not specify.
//
// A backend whose defaults violate BlockSize % BytesPerChecksum == 0 is
// misconfigured; the create-option resolver rejects such defaults with an
// ErrInternal-coded error.
type ServerDefaults struct {
	BlockSize         int64
	BytesPerChecksum  int
	ChecksumAlgorithm ChecksumAlgorithm
	FileBufferSize    int
	Replication       int
}
