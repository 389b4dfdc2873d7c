package execution

import (
	"ridgedb/catalog"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
)

// SeqScan walks every row of a table in rid order, taking a shared
// table-level lock for the duration of the transaction. Grounded on
// thetarby-helindb/execution/executors/seq_scan.go.
type SeqScan struct {
	ctx   *Context
	table *catalog.TableInfo
	h     *heap.TableHeap

	started bool
	cur     heap.Rid
	have    bool
}

func NewSeqScan(ctx *Context, table *catalog.TableInfo) *SeqScan {
	return &SeqScan{ctx: ctx, table: table}
}

func (e *SeqScan) Init() error {
	id := txn.TableLock(e.table.FileHandle)
	if err := e.ctx.Locks.Acquire(e.ctx.Txn, id, lockmgr.S); err != nil {
		return err
	}
	e.h = e.ctx.Heaps(e.table.FileHandle)
	rid, ok, err := e.h.FirstRid()
	if err != nil {
		return err
	}
	e.cur, e.have, e.started = rid, ok, true
	return nil
}

func (e *SeqScan) Schema() *catalog.Schema { return e.table.Schema }

func (e *SeqScan) Next() (*catalog.Tuple, heap.Rid, error) {
	if !e.started || !e.have {
		return nil, heap.Rid{}, ErrNoTuple
	}
	rid := e.cur
	data, err := e.h.Get(rid)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	tup, err := catalog.Decode(e.table.Schema, data)
	if err != nil {
		return nil, heap.Rid{}, err
	}

	next, ok, err := e.h.NextRid(rid)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	e.cur, e.have = next, ok
	return tup, rid, nil
}
