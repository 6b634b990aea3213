package fs

import (
	"strings"
	"testing"
)

func testDefaults() ServerDefaults {
	return ServerDefaults{
		BlockSize:         128,
		BytesPerChecksum:  16,
		ChecksumAlgorithm: ChecksumCRC32C,
		FileBufferSize:    4096,
		Replication:       3,
	}
}

func TestResolveCreateOptionsDefaults(t *testing.T) {
	params, err := resolveCreateOptions(NewPath("/f"), testDefaults(), []CreateOption{
		Permission(0644),
	})
	if err != nil {
		t.Fatalf("resolveCreateOptions() unexpected error: %v", err)
	}
	if params.Permission != 0644 {
		t.Errorf("Permission = %o, want 0644", params.Permission)
	}
	if params.BlockSize != 128 || params.BufferSize != 4096 || params.Replication != 3 {
		t.Errorf("defaults not applied: %+v", params)
	}
	if params.Checksum.Algorithm != ChecksumCRC32C || params.Checksum.BytesPerChecksum != 16 {
		t.Errorf("checksum defaults not applied: %+v", params.Checksum)
	}
}

func TestResolveCreateOptionsDuplicateRejected(t *testing.T) {
	// Duplicates are rejected even when the values are identical.
	_, err := resolveCreateOptions(NewPath("/f"), testDefaults(), []CreateOption{
		Permission(0644),
		BlockSize(128),
		BlockSize(128),
	})
	if err == nil {
		t.Fatal("expected error for duplicate BlockSize option")
	}
	if !HasCode(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
	if !strings.Contains(err.Error(), "BlockSize option is set multiple times") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestResolveCreateOptionsPermissionMandatory(t *testing.T) {
	_, err := resolveCreateOptions(NewPath("/f"), testDefaults(), []CreateOption{
		BlockSize(128),
	})
	if err == nil {
		t.Fatal("expected error for missing permission")
	}
	if !strings.Contains(err.Error(), "no permission supplied") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestResolveCreateOptionsChecksumMerge(t *testing.T) {
	// An explicit BytesPerChecksum wins over the one embedded in an
	// explicit checksum policy.
	params, err := resolveCreateOptions(NewPath("/f"), testDefaults(), []CreateOption{
		Permission(0644),
		Checksum(ChecksumPolicy{Algorithm: ChecksumCRC32, BytesPerChecksum: 32}),
		BytesPerChecksum(8),
	})
	if err != nil {
		t.Fatalf("resolveCreateOptions() unexpected error: %v", err)
	}
	if params.Checksum.Algorithm != ChecksumCRC32 {
		t.Errorf("Algorithm = %v, want crc32", params.Checksum.Algorithm)
	}
	if params.Checksum.BytesPerChecksum != 8 {
		t.Errorf("BytesPerChecksum = %d, want 8", params.Checksum.BytesPerChecksum)
	}
}

func TestResolveCreateOptionsBlockSizeDivisibility(t *testing.T) {
	// 128 % 8 == 0 passes.
	if _, err := resolveCreateOptions(NewPath("/f"), testDefaults(), []CreateOption{
		Permission(0644),
		BytesPerChecksum(8),
	}); err != nil {
		t.Fatalf("resolveCreateOptions() unexpected error: %v", err)
	}

	// 128 % 7 != 0 fails.
	_, err := resolveCreateOptions(NewPath("/f"), testDefaults(), []CreateOption{
		Permission(0644),
		BytesPerChecksum(7),
	})
	if !HasCode(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestResolveCreateOptionsBadServerDefaults(t *testing.T) {
	defaults := testDefaults()
	defaults.BlockSize = 100 // not a multiple of 16

	_, err := resolveCreateOptions(NewPath("/f"), defaults, []CreateOption{
		Permission(0644),
	})
	if !HasCode(err, ErrInternal) {
		t.Errorf("error = %v, want ErrInternal for inconsistent server defaults", err)
	}
}
