package execution

import (
	"ridgedb/catalog"
	"ridgedb/dberr"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
)

// IndexScan returns at most one row: the exact match for a fully-bound
// key probe on a unique index. Grounded on
// thetarby-helindb/execution/executors/index_scan.go.
type IndexScan struct {
	ctx   *Context
	table *catalog.TableInfo
	index *catalog.IndexInfo
	key   []byte

	h *heap.TableHeap

	done bool
	rid  heap.Rid
	have bool
}

func NewIndexScan(ctx *Context, table *catalog.TableInfo, index *catalog.IndexInfo, key []byte) *IndexScan {
	return &IndexScan{ctx: ctx, table: table, index: index, key: key}
}

func (e *IndexScan) Init() error {
	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.TableLock(e.table.FileHandle), lockmgr.IS); err != nil {
		return err
	}
	e.h = e.ctx.Heaps(e.table.FileHandle)
	tree := e.ctx.Indexes(e.index.FileHandle)

	value, err := tree.Get(e.key)
	if err != nil {
		if dberr.Is(err, dberr.KindIndexEntryNotFound) {
			e.have = false
			return nil
		}
		return err
	}
	e.rid = heap.DecodeRid(value)
	e.have = true
	return nil
}

func (e *IndexScan) Schema() *catalog.Schema { return e.table.Schema }

func (e *IndexScan) Next() (*catalog.Tuple, heap.Rid, error) {
	if e.done || !e.have {
		return nil, heap.Rid{}, ErrNoTuple
	}
	e.done = true

	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.RowLock(e.table.FileHandle, e.rid), lockmgr.S); err != nil {
		return nil, heap.Rid{}, err
	}
	data, err := e.h.Get(e.rid)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	tup, err := catalog.Decode(e.table.Schema, data)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	return tup, e.rid, nil
}
