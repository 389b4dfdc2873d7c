package execution

import (
	"ridgedb/catalog"
	"ridgedb/dberr"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
)

// Insert takes each row produced by a child executor (or, via
// NewInsertRaw, a fixed list of rows), probes every unique index for a
// collision, writes the row to the heap, maintains every index, and
// records both in the transaction's write-set for abort-undo.
// Grounded on
// thetarby-helindb/execution/executors/insert_executor.go, with a
// uniqueness probe added ahead of the write (probe with tiebreaker -1,
// dberr.ErrUniquenessViolation on a hit).
type Insert struct {
	ctx   *Context
	table *catalog.TableInfo
	child Executor
	raw   []*catalog.Tuple
	rawAt int
	done  bool
}

func NewInsert(ctx *Context, table *catalog.TableInfo, child Executor) *Insert {
	return &Insert{ctx: ctx, table: table, child: child}
}

func NewInsertRaw(ctx *Context, table *catalog.TableInfo, rows []*catalog.Tuple) *Insert {
	return &Insert{ctx: ctx, table: table, raw: rows}
}

func (e *Insert) Init() error {
	if err := e.ctx.Locks.Acquire(e.ctx.Txn, txn.TableLock(e.table.FileHandle), lockmgr.IX); err != nil {
		return err
	}
	if e.child != nil {
		return e.child.Init()
	}
	return nil
}

func (e *Insert) Schema() *catalog.Schema { return e.table.Schema }

// Next inserts the next row and returns it together with the rid it
// landed at. It is the caller's responsibility to keep pulling until
// ErrNoTuple if they want every row inserted.
func (e *Insert) Next() (*catalog.Tuple, heap.Rid, error) {
	if e.done {
		return nil, heap.Rid{}, ErrNoTuple
	}

	var row *catalog.Tuple
	if e.child != nil {
		var err error
		row, _, err = e.child.Next()
		if err != nil {
			return nil, heap.Rid{}, err
		}
	} else {
		if e.rawAt >= len(e.raw) {
			e.done = true
			return nil, heap.Rid{}, ErrNoTuple
		}
		row = e.raw[e.rawAt]
		e.rawAt++
	}

	h := e.ctx.Heaps(e.table.FileHandle)
	for _, idx := range e.table.Indexes {
		if !idx.Unique {
			continue
		}
		values := catalog.IndexValues(idx, e.table.Schema, row)
		probe := catalog.BuildKey(idx, values, dataTiebreaker)
		tree := e.ctx.Indexes(idx.FileHandle)
		if _, err := tree.Get(probe); err == nil {
			return nil, heap.Rid{}, dberr.ErrUniquenessViolation
		} else if !dberr.Is(err, dberr.KindIndexEntryNotFound) {
			return nil, heap.Rid{}, err
		}
	}

	data, err := catalog.Encode(e.table.Schema, row.Values)
	if err != nil {
		return nil, heap.Rid{}, err
	}

	var newPageErr error
	rid, err := h.InsertLogged(data, func(pageNum int64) {
		newPageErr = e.ctx.TxnMgr.LogNewPage(e.ctx.Txn, e.table.FileHandle, pageNum)
	})
	if err != nil {
		return nil, heap.Rid{}, err
	}
	if newPageErr != nil {
		return nil, heap.Rid{}, newPageErr
	}
	if err := e.ctx.TxnMgr.LogInsert(e.ctx.Txn, e.table.FileHandle, rid, data); err != nil {
		return nil, heap.Rid{}, err
	}
	e.ctx.Txn.PushWrite(txn.WriteRecord{Kind: txn.WriteInsert, Target: txn.TargetRow, FileHandle: e.table.FileHandle, Rid: rid, NewValue: data})

	for _, idx := range e.table.Indexes {
		values := catalog.IndexValues(idx, e.table.Schema, row)
		key := catalog.BuildKey(idx, values, dataTiebreaker)
		tree := e.ctx.Indexes(idx.FileHandle)
		if err := tree.Insert(key, heap.EncodeRid(rid)); err != nil {
			return nil, heap.Rid{}, err
		}
		e.ctx.Txn.PushWrite(txn.WriteRecord{Kind: txn.WriteInsert, Target: txn.TargetIndex, FileHandle: idx.FileHandle, Rid: rid, NewValue: key})
	}

	return row, rid, nil
}

// dataTiebreaker is the tiebreaker every row-backed index entry
// carries; it doubles as the uniqueness-probe tiebreaker, so a unique
// index's own entries are what a probe collides with.
const dataTiebreaker = int32(-1)
