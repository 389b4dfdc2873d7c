package heap

import (
	"testing"

	"ridgedb/buffer"
	"ridgedb/disk"
	"ridgedb/wal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecordLength = 10

func newTestHeap(t *testing.T) *TableHeap {
	t.Helper()
	d, err := disk.NewManager(t.TempDir(), 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	logMgr := wal.NewLogManager(d.LogWriter(), 4096)
	pool := buffer.NewBufferPool(8, d, logMgr)

	fh, err := d.OpenFile("t.tbl")
	require.NoError(t, err)

	th, err := CreateTableHeap(pool, fh, testRecordLength)
	require.NoError(t, err)
	return th
}

func rec(b byte) []byte {
	out := make([]byte, testRecordLength)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestTableHeap_InsertGet(t *testing.T) {
	h := newTestHeap(t)

	rid, err := h.Insert(rec(1))
	require.NoError(t, err)

	got, err := h.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, rec(1), got)
}

func TestTableHeap_UpdateReturnsPreImage(t *testing.T) {
	h := newTestHeap(t)
	rid, err := h.Insert(rec(1))
	require.NoError(t, err)

	old, err := h.Update(rid, rec(2))
	require.NoError(t, err)
	assert.Equal(t, rec(1), old)

	got, err := h.Get(rid)
	require.NoError(t, err)
	assert.Equal(t, rec(2), got)
}

func TestTableHeap_DeleteThenGet_NotFound(t *testing.T) {
	h := newTestHeap(t)
	rid, err := h.Insert(rec(1))
	require.NoError(t, err)

	_, err = h.Delete(rid)
	require.NoError(t, err)

	_, err = h.Get(rid)
	assert.Error(t, err)
}

func TestTableHeap_FirstRidNextRid_WalkEveryInsertedRow(t *testing.T) {
	h := newTestHeap(t)

	capacity := h.capacity
	n := capacity*3 + 5 // force at least two chain extensions
	for i := 0; i < n; i++ {
		_, err := h.Insert(rec(byte(i % 251)))
		require.NoError(t, err)
	}

	count := 0
	rid, ok, err := h.FirstRid()
	require.NoError(t, err)
	for ok {
		count++
		rid, ok, err = h.NextRid(rid)
		require.NoError(t, err)
	}
	assert.Equal(t, n, count)
}

func TestTableHeap_InsertLogged_FiresHookExactlyOncePerNewPage(t *testing.T) {
	h := newTestHeap(t)
	capacity := h.capacity

	var hookCalls int
	onNewPage := func(pageNum int64) { hookCalls++ }

	for i := 0; i < capacity; i++ {
		_, err := h.InsertLogged(rec(byte(i)), onNewPage)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, hookCalls, "first page still has room, chain should not grow yet")

	_, err := h.InsertLogged(rec(99), onNewPage)
	require.NoError(t, err)
	assert.Equal(t, 1, hookCalls, "page exhausted, chain should grow exactly once")
}
