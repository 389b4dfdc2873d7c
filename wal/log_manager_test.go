package wal

import (
	"os"
	"path/filepath"
	"testing"

	"ridgedb/disk/pages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLogFile(t *testing.T) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wal.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// writtenBytes reads back everything the LogManager has actually written
// to f so far.
func writtenBytes(t *testing.T, f *os.File) []byte {
	t.Helper()
	n, err := f.Seek(0, os.SEEK_CUR)
	require.NoError(t, err)
	out := make([]byte, n)
	_, err = f.ReadAt(out, 0)
	require.NoError(t, err)
	return out
}

// TestLogManager_OverflowFlush_PersistLSNMatchesWrittenBytes forces a
// buffer-overflow flush with a buffer sized to hold exactly two BEGIN
// records, and checks that PersistLSN after the third AddLogToBuffer call
// names the LSN of the last record actually written to disk, not the LSN
// just assigned to the record still sitting unflushed in the buffer.
func TestLogManager_OverflowFlush_PersistLSNMatchesWrittenBytes(t *testing.T) {
	f := openLogFile(t)
	rec := NewBeginRecord(1)
	recSize := len(rec.Encode())
	lm := NewLogManager(f, recSize*2)

	lsn1, err := lm.AddLogToBuffer(NewBeginRecord(1))
	require.NoError(t, err)
	lsn2, err := lm.AddLogToBuffer(NewBeginRecord(2))
	require.NoError(t, err)
	assert.Equal(t, 0, len(writtenBytes(t, f)), "buffer not yet full, nothing should be on disk")

	// This third record overflows the two-record buffer and must trigger
	// a flush of the first two records before it is itself buffered.
	lsn3, err := lm.AddLogToBuffer(NewBeginRecord(3))
	require.NoError(t, err)

	onDisk := writtenBytes(t, f)
	assert.Equal(t, recSize*2, len(onDisk), "overflow flush should have written exactly the first two records")
	assert.Equal(t, lsn2, lm.PersistLSN(), "persist-LSN must name the last record actually flushed, not lsn3 which is still buffered")
	assert.NotEqual(t, lsn3, lm.PersistLSN())

	require.NoError(t, lm.FlushLogToDisk())
	assert.Equal(t, lsn3, lm.PersistLSN())
	onDisk = writtenBytes(t, f)
	assert.Equal(t, recSize*3, len(onDisk))
	assert.Less(t, lsn1, lsn2)
}

// TestLogManager_OversizedRecord_WritesThroughAndAdvancesPersistLSN
// checks the straight-through path for a record wider than the whole
// buffer: its LSN becomes durable immediately since the bytes are
// written synchronously, not buffered.
func TestLogManager_OversizedRecord_WritesThroughAndAdvancesPersistLSN(t *testing.T) {
	f := openLogFile(t)
	lm := NewLogManager(f, 8)

	big := NewInsertRecord(1, 0, "t", Rid{PageNum: 1, Slot: 2}, make([]byte, 64))
	encodedSize := len(big.Encode())
	lsn, err := lm.AddLogToBuffer(big)
	require.NoError(t, err)
	assert.Equal(t, lsn, lm.PersistLSN())

	onDisk := writtenBytes(t, f)
	assert.Equal(t, encodedSize, len(onDisk))
}

// TestLogManager_FlushLogToDisk_EmptyBuffer_IsANoop checks flushing with
// nothing buffered neither writes nor moves persist-LSN.
func TestLogManager_FlushLogToDisk_EmptyBuffer_IsANoop(t *testing.T) {
	f := openLogFile(t)
	lm := NewLogManager(f, 4096)
	require.NoError(t, lm.FlushLogToDisk())
	assert.Equal(t, 0, len(writtenBytes(t, f)))
	assert.Equal(t, pages.LSN(0), lm.PersistLSN())
}
