package execution

import (
	"ridgedb/catalog"
	"ridgedb/catalog/db_types"
	"ridgedb/dberr"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
)

// Update rewrites every row its child executor yields through fn,
// maintaining every affected index. It probes each unique index with
// the row's new key instead of scanning the whole table for a
// collision, grounded on
// thetarby-helindb/execution/executors/insert_executor.go's
// probe-then-insert pattern.
type Update struct {
	ctx   *Context
	table *catalog.TableInfo
	child Executor
	fn    func(old *catalog.Tuple) []*db_types.Value
}

func NewUpdate(ctx *Context, table *catalog.TableInfo, child Executor, fn func(old *catalog.Tuple) []*db_types.Value) *Update {
	return &Update{ctx: ctx, table: table, child: child, fn: fn}
}

func (e *Update) Init() error {
	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.TableLock(e.table.FileHandle), lockmgr.IX); err != nil {
		return err
	}
	return e.child.Init()
}

func (e *Update) Schema() *catalog.Schema { return e.table.Schema }

func (e *Update) Next() (*catalog.Tuple, heap.Rid, error) {
	oldRow, rid, err := e.child.Next()
	if err != nil {
		return nil, heap.Rid{}, err
	}

	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.RowLock(e.table.FileHandle, rid), lockmgr.X); err != nil {
		return nil, heap.Rid{}, err
	}

	newRow := &catalog.Tuple{Values: e.fn(oldRow)}

	for _, idx := range e.table.Indexes {
		if !idx.Unique {
			continue
		}
		newKey := catalog.BuildKey(idx, catalog.IndexValues(idx, e.table.Schema, newRow), dataTiebreaker)
		oldKey := catalog.BuildKey(idx, catalog.IndexValues(idx, e.table.Schema, oldRow), dataTiebreaker)
		if string(newKey) == string(oldKey) {
			continue // key unchanged, cannot newly collide
		}
		tree := e.ctx.Indexes(idx.FileHandle)
		if value, err := tree.Get(newKey); err == nil {
			if heap.DecodeRid(value) != rid {
				return nil, heap.Rid{}, dberr.ErrUniquenessViolation
			}
		} else if !dberr.Is(err, dberr.KindIndexEntryNotFound) {
			return nil, heap.Rid{}, err
		}
	}

	newData, err := catalog.Encode(e.table.Schema, newRow.Values)
	if err != nil {
		return nil, heap.Rid{}, err
	}

	h := e.ctx.Heaps(e.table.FileHandle)
	oldData, err := h.Update(rid, newData)
	if err != nil {
		return nil, heap.Rid{}, err
	}
	if err := e.ctx.TxnMgr.LogUpdate(e.ctx.Txn, e.table.FileHandle, rid, oldData, newData); err != nil {
		return nil, heap.Rid{}, err
	}
	e.ctx.Txn.PushWrite(txn.WriteRecord{Kind: txn.WriteUpdate, Target: txn.TargetRow, FileHandle: e.table.FileHandle, Rid: rid, OldValue: oldData, NewValue: newData})

	for _, idx := range e.table.Indexes {
		oldKey := catalog.BuildKey(idx, catalog.IndexValues(idx, e.table.Schema, oldRow), dataTiebreaker)
		newKey := catalog.BuildKey(idx, catalog.IndexValues(idx, e.table.Schema, newRow), dataTiebreaker)
		if string(oldKey) == string(newKey) {
			continue
		}
		tree := e.ctx.Indexes(idx.FileHandle)
		if _, err := tree.Delete(oldKey); err != nil {
			return nil, heap.Rid{}, err
		}
		if err := tree.Insert(newKey, heap.EncodeRid(rid)); err != nil {
			return nil, heap.Rid{}, err
		}
		e.ctx.Txn.PushWrite(txn.WriteRecord{Kind: txn.WriteUpdate, Target: txn.TargetIndex, FileHandle: idx.FileHandle, Rid: rid, OldValue: oldKey, NewValue: newKey})
	}

	return newRow, rid, nil
}
