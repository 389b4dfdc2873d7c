package execution

import (
	"ridgedb/btree"
	"ridgedb/catalog"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
)

// IndexRangeScan walks an index's leaf chain from a lower-bound key
// (inclusive) up to an exclusive upper-bound key, fetching each
// matching row through the owning table's heap. A nil lower bound
// starts at the first entry; a nil upper bound runs to the end of the
// index. Grounded on
// thetarby-helindb/execution/executors/index_range_scan.go.
type IndexRangeScan struct {
	ctx   *Context
	table *catalog.TableInfo
	index *catalog.IndexInfo
	lo, hi []byte

	h    *heap.TableHeap
	tree *btree.Tree
	cur  btree.Iid
}

func NewIndexRangeScan(ctx *Context, table *catalog.TableInfo, index *catalog.IndexInfo, lo, hi []byte) *IndexRangeScan {
	return &IndexRangeScan{ctx: ctx, table: table, index: index, lo: lo, hi: hi}
}

func (e *IndexRangeScan) Init() error {
	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.TableLock(e.table.FileHandle), lockmgr.IS); err != nil {
		return err
	}
	e.h = e.ctx.Heaps(e.table.FileHandle)
	e.tree = e.ctx.Indexes(e.index.FileHandle)

	var id btree.Iid
	var err error
	if e.lo != nil {
		id, err = e.tree.Seek(e.lo)
	} else {
		id, err = e.tree.First()
	}
	if err != nil {
		return err
	}
	e.cur = id
	return nil
}

func (e *IndexRangeScan) Schema() *catalog.Schema { return e.table.Schema }

func (e *IndexRangeScan) Next() (*catalog.Tuple, heap.Rid, error) {
	if e.cur.IsEnd() {
		return nil, heap.Rid{}, ErrNoTuple
	}
	key, value, err := e.tree.At(e.cur)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	if e.hi != nil && catalog.CompareKeys(e.index, key, e.hi) >= 0 {
		e.cur = btree.Iid{LeafPage: -1}
		return nil, heap.Rid{}, ErrNoTuple
	}

	rid := heap.DecodeRid(value)
	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.RowLock(e.table.FileHandle, rid), lockmgr.S); err != nil {
		return nil, heap.Rid{}, err
	}
	data, err := e.h.Get(rid)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	tup, err := catalog.Decode(e.table.Schema, data)
	if err != nil {
		return nil, heap.Rid{}, err
	}

	next, err := e.tree.Next(e.cur)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	e.cur = next
	return tup, rid, nil
}
