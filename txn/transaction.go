// Package txn implements the per-transaction state machine and the
// begin/commit/abort orchestration, grounded on the TxnID/Transaction
// vocabulary of thetarby-helindb/transaction and the lifecycle
// thetarby-helindb/concurrency/txn_manager.go drives, adapted to a
// write-set/lock-set/undo model instead of the teacher's page-latch
// bookkeeping.
package txn

import (
	"sync"

	"ridgedb/disk/pages"
	"ridgedb/heap"
)

type TxnID int64

// State is a transaction's position in the DEFAULT -> GROWING -> SHRINKING
// -> COMMITTED/ABORTED state machine.
type State int

const (
	Default State = iota
	Growing
	Shrinking
	Committed
	Aborted
)

func (s State) String() string {
	switch s {
	case Default:
		return "DEFAULT"
	case Growing:
		return "GROWING"
	case Shrinking:
		return "SHRINKING"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Granularity distinguishes a whole-table lock request from a single-row
// one.
type Granularity int

const (
	Table Granularity = iota
	Row
)

// LockDataId names either an entire table or one row.
type LockDataId struct {
	FileHandle  int32
	Rid         heap.Rid
	Granularity Granularity
}

func TableLock(fileHandle int32) LockDataId {
	return LockDataId{FileHandle: fileHandle, Granularity: Table}
}

func RowLock(fileHandle int32, rid heap.Rid) LockDataId {
	return LockDataId{FileHandle: fileHandle, Rid: rid, Granularity: Row}
}

// WriteKind is the operation a WriteRecord undoes on abort.
type WriteKind int

const (
	WriteInsert WriteKind = iota
	WriteDelete
	WriteUpdate
)

// WriteTarget distinguishes a table-row write from an index-entry write.
type WriteTarget int

const (
	TargetRow WriteTarget = iota
	TargetIndex
)

// WriteRecord is one entry of a transaction's write-set, holding enough
// of the pre-image to invert the operation on abort.
type WriteRecord struct {
	Kind   WriteKind
	Target WriteTarget

	FileHandle int32 // heap file (TargetRow) or index file (TargetIndex)
	Rid        heap.Rid

	OldValue []byte // heap record pre-image, or old index key
	NewValue []byte // new heap record, or new index key (INSERT and UPDATE)
}

// Transaction holds a transaction's id, state, prev-LSN, write-set and
// lock-set.
type Transaction struct {
	mu sync.Mutex

	id            TxnID
	startTime     int64
	state         State
	prevLSN       pages.LSN
	writeSet      []WriteRecord
	lockSet       map[LockDataId]struct{}
}

func New(id TxnID, startTime int64) *Transaction {
	return &Transaction{
		id:        id,
		startTime: startTime,
		state:     Default,
		prevLSN:   pages.ZeroLSN,
		lockSet:   map[LockDataId]struct{}{},
	}
}

func (t *Transaction) ID() TxnID { return t.id }

func (t *Transaction) StartTime() int64 { return t.startTime }

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Transaction) PrevLSN() pages.LSN {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prevLSN
}

func (t *Transaction) SetPrevLSN(lsn pages.LSN) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prevLSN = lsn
}

// AddLock records id in the lock-set. Idempotent.
func (t *Transaction) AddLock(id LockDataId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lockSet[id] = struct{}{}
}

func (t *Transaction) RemoveLock(id LockDataId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lockSet, id)
}

// LockSet returns a snapshot of the currently held LockDataIds.
func (t *Transaction) LockSet() []LockDataId {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LockDataId, 0, len(t.lockSet))
	for id := range t.lockSet {
		out = append(out, id)
	}
	return out
}

// PushWrite appends a WriteRecord to the write-set, in the order it must
// be undone (reverse order) on abort.
func (t *Transaction) PushWrite(w WriteRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeSet = append(t.writeSet, w)
}

// WriteSet returns a snapshot of the write-set in insertion order.
func (t *Transaction) WriteSet() []WriteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]WriteRecord, len(t.writeSet))
	copy(out, t.writeSet)
	return out
}
