package execution

import (
	"ridgedb/catalog"
	"ridgedb/catalog/db_types"
	"ridgedb/heap"
)

// fakeExecutor replays a fixed row list, the way
// thetarby-helindb/execution/executors/executor_test.go's mock executors
// let operator tests run without a real catalog/heap underneath.
type fakeExecutor struct {
	schema *catalog.Schema
	rows   []*catalog.Tuple
	at     int
}

func newFakeExecutor(schema *catalog.Schema, rows ...*catalog.Tuple) *fakeExecutor {
	return &fakeExecutor{schema: schema, rows: rows}
}

func (f *fakeExecutor) Init() error { f.at = 0; return nil }

func (f *fakeExecutor) Schema() *catalog.Schema { return f.schema }

func (f *fakeExecutor) Next() (*catalog.Tuple, heap.Rid, error) {
	if f.at >= len(f.rows) {
		return nil, heap.Rid{}, ErrNoTuple
	}
	row := f.rows[f.at]
	f.at++
	return row, heap.Rid{PageNum: 0, Slot: int32(f.at - 1)}, nil
}

// fakeRidExecutor is fakeExecutor with an explicit rid per row, for tests
// that need the child's rid to address a row a prior Insert actually
// wrote (delete.go and update.go key off the child's rid, not the row).
type fakeRidExecutor struct {
	schema *catalog.Schema
	rows   []*catalog.Tuple
	rids   []heap.Rid
	at     int
}

func newFakeRidExecutor(schema *catalog.Schema, rows []*catalog.Tuple, rids []heap.Rid) *fakeRidExecutor {
	return &fakeRidExecutor{schema: schema, rows: rows, rids: rids}
}

func (f *fakeRidExecutor) Init() error { f.at = 0; return nil }

func (f *fakeRidExecutor) Schema() *catalog.Schema { return f.schema }

func (f *fakeRidExecutor) Next() (*catalog.Tuple, heap.Rid, error) {
	if f.at >= len(f.rows) {
		return nil, heap.Rid{}, ErrNoTuple
	}
	row, rid := f.rows[f.at], f.rids[f.at]
	f.at++
	return row, rid, nil
}

func intSchema(table string, names ...string) *catalog.Schema {
	cols := make([]catalog.Column, len(names))
	for i, n := range names {
		cols[i] = catalog.NewColumn(table, n, db_types.TypeID{Kind: db_types.KindInt32}, false)
	}
	return catalog.NewSchema(table, cols)
}

func intRow(values ...int32) *catalog.Tuple {
	vs := make([]*db_types.Value, len(values))
	for i, v := range values {
		vs[i] = db_types.NewInt32(v)
	}
	return &catalog.Tuple{Values: vs}
}
