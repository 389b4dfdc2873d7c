package lockmgr

import "ridgedb/txn"

// joinTable is the full pairwise join (supremum) of the IS<IX<S<SIX<X
// lattice, used to compute both a queue's group_mode and a per-txn
// upgrade's resulting mode.
var joinTable = map[[2]Mode]Mode{
	{IS, IS}: IS, {IS, IX}: IX, {IS, S}: S, {IS, SIX}: SIX, {IS, X}: X,
	{IX, IX}: IX, {IX, S}: SIX, {IX, SIX}: SIX, {IX, X}: X,
	{S, S}: S, {S, SIX}: SIX, {S, X}: X,
	{SIX, SIX}: SIX, {SIX, X}: X,
	{X, X}: X,
}

func latticeJoin(a, b Mode) Mode {
	if v, ok := joinTable[[2]Mode{a, b}]; ok {
		return v
	}
	return joinTable[[2]Mode{b, a}]
}

// queue is the per-LockDataId request queue: the granted holders with
// their modes, plus their grant order. The group mode and the shared/IX
// counts are recomputed from the holders on each call.
type queue struct {
	order   []txn.TxnID // FIFO grant order, kept in step with holders
	holders map[txn.TxnID]Mode
}

func newQueue() *queue {
	return &queue{holders: map[txn.TxnID]Mode{}}
}

// groupMode is the join of every granted holder's mode, or the sentinel
// NON_LOCK (represented as -1) when the queue is empty.
const NonLock Mode = -1

func (q *queue) groupMode() Mode {
	if len(q.holders) == 0 {
		return NonLock
	}
	var acc Mode
	first := true
	for _, m := range q.holders {
		if first {
			acc = m
			first = false
			continue
		}
		acc = latticeJoin(acc, m)
	}
	return acc
}

// groupModeExcluding is the group mode computed over every holder other
// than id, used to test whether id's own request or upgrade conflicts
// with anyone else.
func (q *queue) groupModeExcluding(id txn.TxnID) Mode {
	var acc Mode = NonLock
	first := true
	for holder, m := range q.holders {
		if holder == id {
			continue
		}
		if first {
			acc = m
			first = false
			continue
		}
		acc = latticeJoin(acc, m)
	}
	return acc
}

func (q *queue) SharedCount() int {
	n := 0
	for _, m := range q.holders {
		if m == S || m == SIX {
			n++
		}
	}
	return n
}

func (q *queue) IxCount() int {
	n := 0
	for _, m := range q.holders {
		if m == IX || m == SIX {
			n++
		}
	}
	return n
}

func (q *queue) grant(id txn.TxnID, mode Mode) {
	if _, ok := q.holders[id]; !ok {
		q.order = append(q.order, id)
	}
	q.holders[id] = mode
}

func (q *queue) release(id txn.TxnID) {
	delete(q.holders, id)
	for i, o := range q.order {
		if o == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}
