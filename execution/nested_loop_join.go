package execution

import (
	"ridgedb/catalog"
	"ridgedb/catalog/db_types"
	"ridgedb/heap"
)

// Predicate decides whether a left/right tuple pair belongs in a join's
// output.
type Predicate func(left, right *catalog.Tuple) bool

// NestedLoopJoin re-scans the right child for every left tuple, grounded
// on thetarby-helindb/execution/executors/nested_loop_join.go. Planning
// and predicate compilation are out of scope here: callers build the
// predicate directly.
type NestedLoopJoin struct {
	left, right Executor
	pred        Predicate
	schema      *catalog.Schema

	haveLeft bool
	leftRow  *catalog.Tuple
}

func NewNestedLoopJoin(left, right Executor, pred Predicate) *NestedLoopJoin {
	return &NestedLoopJoin{left: left, right: right, pred: pred, schema: concatSchemas(left.Schema(), right.Schema())}
}

func (e *NestedLoopJoin) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	return e.right.Init()
}

func (e *NestedLoopJoin) Schema() *catalog.Schema { return e.schema }

func (e *NestedLoopJoin) Next() (*catalog.Tuple, heap.Rid, error) {
	if !e.haveLeft {
		row, _, err := e.left.Next()
		if err != nil {
			return nil, heap.Rid{}, err
		}
		e.leftRow, e.haveLeft = row, true
	}

	for {
		rightRow, _, err := e.right.Next()
		if err == ErrNoTuple {
			if err := e.right.Init(); err != nil {
				return nil, heap.Rid{}, err
			}
			row, _, err := e.left.Next()
			if err != nil {
				return nil, heap.Rid{}, err
			}
			e.leftRow = row
			continue
		}
		if err != nil {
			return nil, heap.Rid{}, err
		}
		if !e.pred(e.leftRow, rightRow) {
			continue
		}
		return concatRows(e.leftRow, rightRow), heap.Rid{}, nil
	}
}

// concatSchemas builds the schema of a join's output row: every left
// column followed by every right column, offsets recomputed from
// scratch since the two halves no longer share one record layout.
func concatSchemas(l, r *catalog.Schema) *catalog.Schema {
	cols := make([]catalog.Column, 0, len(l.Columns)+len(r.Columns))
	cols = append(cols, l.Columns...)
	cols = append(cols, r.Columns...)
	return catalog.NewSchema(l.TableName+"_"+r.TableName, cols)
}

func concatRows(l, r *catalog.Tuple) *catalog.Tuple {
	values := make([]*db_types.Value, 0, len(l.Values)+len(r.Values))
	values = append(values, l.Values...)
	values = append(values, r.Values...)
	return &catalog.Tuple{Values: values}
}
