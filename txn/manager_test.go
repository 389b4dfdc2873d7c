package txn

import (
	"testing"

	"ridgedb/disk"
	"ridgedb/heap"
	"ridgedb/wal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReleaser and fakeRecordFile/fakeIndexFile stand in for
// lockmgr.Manager/heap.TableHeap/btree.Tree, the way this package's own
// TableResolver/IndexResolver/LockReleaser interfaces let the engine
// supply those concrete types without txn importing them back.
type fakeReleaser struct{ released []TxnID }

func (f *fakeReleaser) ReleaseAll(t *Transaction) { f.released = append(f.released, t.ID()) }

type fakeRecordFile struct {
	rows map[heap.Rid][]byte
}

func newFakeRecordFile() *fakeRecordFile { return &fakeRecordFile{rows: map[heap.Rid][]byte{}} }

func (f *fakeRecordFile) InsertAt(rid heap.Rid, data []byte) error { f.rows[rid] = data; return nil }

func (f *fakeRecordFile) Update(rid heap.Rid, data []byte) ([]byte, error) {
	old := f.rows[rid]
	f.rows[rid] = data
	return old, nil
}

func (f *fakeRecordFile) Delete(rid heap.Rid) ([]byte, error) {
	old := f.rows[rid]
	delete(f.rows, rid)
	return old, nil
}

type fakeIndexFile struct {
	entries map[string][]byte
}

func newFakeIndexFile() *fakeIndexFile { return &fakeIndexFile{entries: map[string][]byte{}} }

func (f *fakeIndexFile) Insert(key, value []byte) error { f.entries[string(key)] = value; return nil }

func (f *fakeIndexFile) Delete(key []byte) (bool, error) {
	_, ok := f.entries[string(key)]
	delete(f.entries, string(key))
	return ok, nil
}

func newTestManager(t *testing.T, table *fakeRecordFile, index *fakeIndexFile) (*Manager, *fakeReleaser) {
	t.Helper()
	d, err := disk.NewManager(t.TempDir(), 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	logMgr := wal.NewLogManager(d.LogWriter(), 4096)
	releaser := &fakeReleaser{}
	m := NewManager(logMgr, releaser,
		func(int32) RecordFile { return table },
		func(int32) IndexFile { return index })
	return m, releaser
}

func TestManager_Begin_StartsGrowingWithFreshID(t *testing.T) {
	m, _ := newTestManager(t, newFakeRecordFile(), newFakeIndexFile())
	t1, err := m.Begin(0)
	require.NoError(t, err)
	t2, err := m.Begin(0)
	require.NoError(t, err)

	assert.Equal(t, Growing, t1.State())
	assert.NotEqual(t, t1.ID(), t2.ID())

	active, ok := m.Active(t1.ID())
	assert.True(t, ok)
	assert.Same(t, t1, active)
}

func TestManager_Commit_RetiresAndReleasesLocks(t *testing.T) {
	m, releaser := newTestManager(t, newFakeRecordFile(), newFakeIndexFile())
	tr, err := m.Begin(0)
	require.NoError(t, err)

	require.NoError(t, m.Commit(tr))

	assert.Equal(t, Committed, tr.State())
	assert.Contains(t, releaser.released, tr.ID())
	_, ok := m.Active(tr.ID())
	assert.False(t, ok, "a committed transaction must no longer be active")
}

func TestManager_Abort_UndoesRowInsertByDeleting(t *testing.T) {
	table := newFakeRecordFile()
	m, _ := newTestManager(t, table, newFakeIndexFile())
	tr, err := m.Begin(0)
	require.NoError(t, err)

	rid := heap.Rid{PageNum: 0, Slot: 0}
	table.rows[rid] = []byte("row")
	tr.PushWrite(WriteRecord{Kind: WriteInsert, Target: TargetRow, FileHandle: 1, Rid: rid})

	require.NoError(t, m.Abort(tr))
	assert.Equal(t, Aborted, tr.State())
	_, stillThere := table.rows[rid]
	assert.False(t, stillThere, "undoing an insert must delete the row")
}

func TestManager_Abort_UndoesRowDeleteByReinserting(t *testing.T) {
	table := newFakeRecordFile()
	m, _ := newTestManager(t, table, newFakeIndexFile())
	tr, err := m.Begin(0)
	require.NoError(t, err)

	rid := heap.Rid{PageNum: 0, Slot: 0}
	old := []byte("original")
	tr.PushWrite(WriteRecord{Kind: WriteDelete, Target: TargetRow, FileHandle: 1, Rid: rid, OldValue: old})

	require.NoError(t, m.Abort(tr))
	assert.Equal(t, old, table.rows[rid])
}

func TestManager_Abort_UndoesRowUpdateByRestoringOldValue(t *testing.T) {
	table := newFakeRecordFile()
	m, _ := newTestManager(t, table, newFakeIndexFile())
	tr, err := m.Begin(0)
	require.NoError(t, err)

	rid := heap.Rid{PageNum: 0, Slot: 0}
	old, new_ := []byte("old"), []byte("new")
	table.rows[rid] = new_
	tr.PushWrite(WriteRecord{Kind: WriteUpdate, Target: TargetRow, FileHandle: 1, Rid: rid, OldValue: old, NewValue: new_})

	require.NoError(t, m.Abort(tr))
	assert.Equal(t, old, table.rows[rid])
}

func TestManager_Abort_UndoesIndexInsertByDeletingNewKey(t *testing.T) {
	index := newFakeIndexFile()
	m, _ := newTestManager(t, newFakeRecordFile(), index)
	tr, err := m.Begin(0)
	require.NoError(t, err)

	newKey := []byte("k")
	index.entries[string(newKey)] = []byte("rid")
	tr.PushWrite(WriteRecord{Kind: WriteInsert, Target: TargetIndex, FileHandle: 2, NewValue: newKey})

	require.NoError(t, m.Abort(tr))
	_, ok := index.entries[string(newKey)]
	assert.False(t, ok)
}

func TestManager_Abort_UndoesWritesInReverseOrder(t *testing.T) {
	table := newFakeRecordFile()
	m, _ := newTestManager(t, table, newFakeIndexFile())
	tr, err := m.Begin(0)
	require.NoError(t, err)

	rid := heap.Rid{PageNum: 0, Slot: 0}
	table.rows[rid] = []byte("v2")
	// Write-set in forward order: insert "v0", update to "v1", update to "v2".
	tr.PushWrite(WriteRecord{Kind: WriteInsert, Target: TargetRow, FileHandle: 1, Rid: rid})
	tr.PushWrite(WriteRecord{Kind: WriteUpdate, Target: TargetRow, FileHandle: 1, Rid: rid, OldValue: []byte("v0"), NewValue: []byte("v1")})
	tr.PushWrite(WriteRecord{Kind: WriteUpdate, Target: TargetRow, FileHandle: 1, Rid: rid, OldValue: []byte("v1"), NewValue: []byte("v2")})

	require.NoError(t, m.Abort(tr))
	// Undoing in reverse restores v1 then v0, then the insert-undo deletes the row.
	_, stillThere := table.rows[rid]
	assert.False(t, stillThere)
}
