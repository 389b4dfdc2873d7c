package wal

import (
	"fmt"
	"os"

	"github.com/golang/snappy"
)

// SegmentSizeThreshold is the log file size past which the engine's Close
// calls SealSegment.
const SegmentSizeThreshold = 64 * 1024 * 1024

// SealSegment reads the full content of a log file, snappy-compresses it,
// and writes it to sealedPath, grounded on thetarby-helindb's indirect
// dependency on github.com/golang/snappy (pulled in transitively by
// go.etcd.io/bbolt in the wider pack, and used directly here as the log's
// own segment-archival codec). The compressed size is returned so the
// engine can log it.
func SealSegment(logPath, sealedPath string) (compressedBytes int, err error) {
	raw, err := os.ReadFile(logPath)
	if err != nil {
		return 0, fmt.Errorf("wal: reading log file to seal: %w", err)
	}

	compressed := snappy.Encode(nil, raw)
	if err := os.WriteFile(sealedPath, compressed, 0o644); err != nil {
		return 0, fmt.Errorf("wal: writing sealed segment: %w", err)
	}

	return len(compressed), nil
}

// ReadSealedSegment decompresses a segment written by SealSegment back
// into its raw log-record bytes. Recovery reads only the live log file,
// not sealed segments.
func ReadSealedSegment(sealedPath string) ([]byte, error) {
	compressed, err := os.ReadFile(sealedPath)
	if err != nil {
		return nil, fmt.Errorf("wal: reading sealed segment: %w", err)
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("wal: decoding sealed segment: %w", err)
	}
	return raw, nil
}
