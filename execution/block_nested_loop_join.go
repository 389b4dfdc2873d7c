package execution

import (
	"ridgedb/catalog"
	"ridgedb/heap"
)

// defaultBlockBytes is BlockNestedLoopJoin's default outer-buffer budget.
const defaultBlockBytes = 1 << 20

// BlockNestedLoopJoin buffers a block of outer rows bounded by
// accumulated byte size rather than a fixed tuple count, then scans the
// inner child once per block instead of once per outer row. The
// teacher's NestedLoopJoin rescans the right child for every single
// left tuple, which is correct but does not amortize the inner scan's
// I/O across a block. Grounded on
// thetarby-helindb/execution/executors/nested_loop_join.go's
// left-tuple/right-rescan loop, generalized to a block of left tuples.
type BlockNestedLoopJoin struct {
	left, right Executor
	pred        Predicate
	schema      *catalog.Schema

	// BufferBytes bounds the outer block's accumulated row size.
	// Defaults to 1 MiB when left at zero.
	BufferBytes int

	block    []*catalog.Tuple
	blockLen int

	pos int // index of the next block entry to probe against rightRow

	haveRight bool
	rightRow  *catalog.Tuple

	leftDone bool
}

func NewBlockNestedLoopJoin(left, right Executor, pred Predicate) *BlockNestedLoopJoin {
	return &BlockNestedLoopJoin{
		left:   left,
		right:  right,
		pred:   pred,
		schema: concatSchemas(left.Schema(), right.Schema()),
	}
}

func (e *BlockNestedLoopJoin) Init() error {
	if e.BufferBytes <= 0 {
		e.BufferBytes = defaultBlockBytes
	}
	if err := e.left.Init(); err != nil {
		return err
	}
	return e.right.Init()
}

func (e *BlockNestedLoopJoin) Schema() *catalog.Schema { return e.schema }

// fillBlock drains the left child into e.block until BufferBytes is
// reached or the left side is exhausted.
func (e *BlockNestedLoopJoin) fillBlock() error {
	e.block = e.block[:0]
	e.blockLen = 0
	for e.blockLen < e.BufferBytes {
		row, _, err := e.left.Next()
		if err == ErrNoTuple {
			e.leftDone = true
			break
		}
		if err != nil {
			return err
		}
		e.block = append(e.block, row)
		e.blockLen += rowSize(row)
	}
	return nil
}

func rowSize(t *catalog.Tuple) int {
	n := 0
	for _, v := range t.Values {
		if v != nil {
			n += v.Size()
		}
	}
	return n
}

func (e *BlockNestedLoopJoin) Next() (*catalog.Tuple, heap.Rid, error) {
	if e.block == nil {
		if err := e.fillBlock(); err != nil {
			return nil, heap.Rid{}, err
		}
	}

	for {
		if len(e.block) == 0 {
			return nil, heap.Rid{}, ErrNoTuple
		}

		if !e.haveRight {
			row, _, err := e.right.Next()
			if err == ErrNoTuple {
				if e.leftDone {
					return nil, heap.Rid{}, ErrNoTuple
				}
				if err := e.right.Init(); err != nil {
					return nil, heap.Rid{}, err
				}
				if err := e.fillBlock(); err != nil {
					return nil, heap.Rid{}, err
				}
				continue
			}
			if err != nil {
				return nil, heap.Rid{}, err
			}
			e.rightRow, e.haveRight = row, true
			e.pos = 0
		}

		for e.pos < len(e.block) {
			left := e.block[e.pos]
			e.pos++
			if e.pred(left, e.rightRow) {
				return concatRows(left, e.rightRow), heap.Rid{}, nil
			}
		}
		e.haveRight = false
	}
}
