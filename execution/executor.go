// Package execution implements the pull-iterator executor contracts:
// Init/Next/Schema operators composed into a tree by the caller (there
// is no SQL parser or planner in scope — tests build the trees
// directly, as thetarby-helindb/execution/executors/executor_test.go
// does).
package execution

import (
	"errors"

	"ridgedb/btree"
	"ridgedb/catalog"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/txn"
)

// ErrNoTuple is returned by Next when an executor is exhausted, the
// pull-iterator end-of-stream signal grounded on
// thetarby-helindb/execution/executors's ErrNoTuple sentinel.
var ErrNoTuple = errors.New("execution: no more tuples")

// Executor is the pull-iterator contract every operator implements.
type Executor interface {
	Init() error
	// Next returns the next tuple and its heap rid, or ErrNoTuple when
	// exhausted.
	Next() (*catalog.Tuple, heap.Rid, error)
	Schema() *catalog.Schema
}

// Context bundles the collaborators every executor needs, grounded on
// thetarby-helindb/execution.ExecutorContext.
type Context struct {
	Txn     *txn.Transaction
	Catalog *catalog.Catalog
	Locks   *lockmgr.Manager
	TxnMgr  *txn.Manager

	// Heaps and Indexes resolve a table/index's on-disk storage from its
	// catalog metadata. Kept as resolver funcs (not concrete types)
	// so this package does not need to know how the engine constructs
	// a heap.TableHeap or a btree.Tree.
	Heaps   func(fileHandle int32) *heap.TableHeap
	Indexes func(fileHandle int32) *btree.Tree
}

func NewContext(t *txn.Transaction, cat *catalog.Catalog, locks *lockmgr.Manager, txnMgr *txn.Manager, heaps func(int32) *heap.TableHeap, indexes func(int32) *btree.Tree) *Context {
	return &Context{Txn: t, Catalog: cat, Locks: locks, TxnMgr: txnMgr, Heaps: heaps, Indexes: indexes}
}
