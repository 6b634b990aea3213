package badgerfs

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// fileRecord is the persistent representation of one file or directory.
//
// Records are encoded with XDR, which gives a compact, stable, endianness-
// independent layout. Content bytes live under a separate key so metadata
// scans never page in file data.
type fileRecord struct {
	Dir         bool
	Mode        uint32
	Size        int64
	ModTimeNano int64
}

// encodeRecord serializes a fileRecord to XDR bytes.
func encodeRecord(rec *fileRecord) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, rec); err != nil {
		return nil, fmt.Errorf("failed to encode file record: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRecord deserializes a fileRecord from XDR bytes.
func decodeRecord(data []byte) (*fileRecord, error) {
	var rec fileRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode file record: %w", err)
	}
	return &rec, nil
}
