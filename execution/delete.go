package execution

import (
	"ridgedb/catalog"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
)

// Delete removes every row its child executor yields: an exclusive row
// lock, the heap delete, and removal of every index entry, each
// recorded in the write-set for abort-undo.
type Delete struct {
	ctx   *Context
	table *catalog.TableInfo
	child Executor
}

func NewDelete(ctx *Context, table *catalog.TableInfo, child Executor) *Delete {
	return &Delete{ctx: ctx, table: table, child: child}
}

func (e *Delete) Init() error {
	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.TableLock(e.table.FileHandle), lockmgr.IX); err != nil {
		return err
	}
	return e.child.Init()
}

func (e *Delete) Schema() *catalog.Schema { return e.table.Schema }

func (e *Delete) Next() (*catalog.Tuple, heap.Rid, error) {
	row, rid, err := e.child.Next()
	if err != nil {
		return nil, heap.Rid{}, err
	}

	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.RowLock(e.table.FileHandle, rid), lockmgr.X); err != nil {
		return nil, heap.Rid{}, err
	}

	h := e.ctx.Heaps(e.table.FileHandle)
	old, err := h.Delete(rid)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	if err := e.ctx.TxnMgr.LogDelete(e.ctx.Txn, e.table.FileHandle, rid, old); err != nil {
		return nil, heap.Rid{}, err
	}
	e.ctx.Txn.PushWrite(txn.WriteRecord{Kind: txn.WriteDelete, Target: txn.TargetRow, FileHandle: e.table.FileHandle, Rid: rid, OldValue: old})

	for _, idx := range e.table.Indexes {
		values := catalog.IndexValues(idx, e.table.Schema, row)
		key := catalog.BuildKey(idx, values, dataTiebreaker)
		tree := e.ctx.Indexes(idx.FileHandle)
		if _, err := tree.Delete(key); err != nil {
			return nil, heap.Rid{}, err
		}
		e.ctx.Txn.PushWrite(txn.WriteRecord{Kind: txn.WriteDelete, Target: txn.TargetIndex, FileHandle: idx.FileHandle, Rid: rid, OldValue: key})
	}

	return row, rid, nil
}
