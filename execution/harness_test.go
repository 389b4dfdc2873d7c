package execution

import (
	"testing"

	"ridgedb/btree"
	"ridgedb/buffer"
	"ridgedb/catalog"
	"ridgedb/catalog/db_types"
	"ridgedb/disk"
	"ridgedb/disk/pages"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
	"ridgedb/wal"

	"github.com/stretchr/testify/require"
)

// testEnv wires a real disk/buffer/lockmgr/txn stack the way engine.Open
// does, scoped down to a single table with one unique index, so
// Insert/Delete/Update can be exercised against real storage instead of
// fakes — the same collaborators execution.Context bundles in production.
type testEnv struct {
	t       *testing.T
	pool    buffer.Pool
	locks   *lockmgr.Manager
	txnMgr  *txn.Manager
	heaps   map[int32]*heap.TableHeap
	indexes map[int32]*btree.Tree
	table   *catalog.TableInfo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := disk.NewManager(t.TempDir(), 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	logMgr := wal.NewLogManager(d.LogWriter(), 4096)
	pool := buffer.NewBufferPool(32, d, logMgr)
	locks := lockmgr.NewManager()

	env := &testEnv{t: t, pool: pool, locks: locks, heaps: map[int32]*heap.TableHeap{}, indexes: map[int32]*btree.Tree{}}
	env.txnMgr = txn.NewManager(logMgr, locks,
		func(fh int32) txn.RecordFile { return env.heaps[fh] },
		func(fh int32) txn.IndexFile { return env.indexes[fh] })

	schema := catalog.NewSchema("people", []catalog.Column{
		catalog.NewColumn("people", "id", db_types.TypeID{Kind: db_types.KindInt32}, false),
		catalog.NewColumn("people", "age", db_types.TypeID{Kind: db_types.KindInt32}, false),
	})

	fh, err := d.OpenFile("people.tbl")
	require.NoError(t, err)
	th, err := heap.CreateTableHeap(pool, fh, schema.TotalLength)
	require.NoError(t, err)
	env.heaps[fh] = th

	table := catalog.NewTableInfo("people", schema, fh, th.FirstPage())

	idxFh, err := d.OpenFile("people.id.idx")
	require.NoError(t, err)
	idxInfo := catalog.NewIndexInfo("idx_id", "people", []catalog.Column{schema.Columns[0]}, true, idxFh, pages.PageID{})
	tree, err := btree.Create(pool, idxFh, idxInfo.KeyLength, func(a, b []byte) int { return catalog.CompareKeys(idxInfo, a, b) })
	require.NoError(t, err)
	idxInfo.RootPageID = tree.RootID()
	env.indexes[idxFh] = tree
	table.AddIndex(idxInfo)

	env.table = table
	return env
}

func (env *testEnv) begin() *txn.Transaction {
	tr, err := env.txnMgr.Begin(0)
	require.NoError(env.t, err)
	return tr
}

func (env *testEnv) context(tr *txn.Transaction) *Context {
	return NewContext(tr, nil, env.locks, env.txnMgr,
		func(fh int32) *heap.TableHeap { return env.heaps[fh] },
		func(fh int32) *btree.Tree { return env.indexes[fh] })
}
