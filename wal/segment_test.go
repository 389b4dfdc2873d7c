package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealSegment_RoundTripsThroughReadSealedSegment(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "wal.log")
	raw := []byte("some log bytes, repeated ")
	var content []byte
	for i := 0; i < 1000; i++ {
		content = append(content, raw...)
	}
	require.NoError(t, os.WriteFile(logPath, content, 0o644))

	sealedPath := filepath.Join(dir, "wal.seg")
	compressedLen, err := SealSegment(logPath, sealedPath)
	require.NoError(t, err)
	assert.Less(t, compressedLen, len(content), "repeated content should compress smaller")

	got, err := ReadSealedSegment(sealedPath)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
