package txn

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"ridgedb/heap"
	"ridgedb/wal"

	"github.com/sirupsen/logrus"
)

// LockReleaser is the subset of lockmgr.Manager the transaction manager
// needs. Defined here, satisfied structurally by *lockmgr.Manager, so
// that lockmgr can import txn without txn importing lockmgr back.
type LockReleaser interface {
	ReleaseAll(t *Transaction)
}

// RecordFile is the subset of heap.TableHeap needed to undo a row write
// on abort.
type RecordFile interface {
	InsertAt(rid heap.Rid, data []byte) error
	Update(rid heap.Rid, data []byte) ([]byte, error)
	Delete(rid heap.Rid) ([]byte, error)
}

// IndexFile is the subset of btree.Tree needed to undo an index write on
// abort.
type IndexFile interface {
	Insert(key, value []byte) error
	Delete(key []byte) (bool, error)
}

// TableResolver and IndexResolver let the engine hand the manager a way
// to look up the concrete heap/tree for a WriteRecord's FileHandle
// without txn importing heap's or btree's constructors, or catalog.
type TableResolver func(fileHandle int32) RecordFile
type IndexResolver func(fileHandle int32) IndexFile

// Manager is the begin/commit/abort orchestrator: it hands out TxnIDs,
// tracks active transactions, and on Commit/Abort appends the
// terminating log record and releases the transaction's locks.
// Grounded on the lifecycle thetarby-helindb/concurrency/txn_manager.go
// drives, adapted to a write-set undo model.
type Manager struct {
	mu      sync.Mutex
	actives map[TxnID]*Transaction
	counter int64

	logMgr   *wal.LogManager
	releaser LockReleaser
	tables   TableResolver
	indexes  IndexResolver

	log *logrus.Entry
}

func NewManager(logMgr *wal.LogManager, releaser LockReleaser, tables TableResolver, indexes IndexResolver) *Manager {
	return &Manager{
		actives:  map[TxnID]*Transaction{},
		logMgr:   logMgr,
		releaser: releaser,
		tables:   tables,
		indexes:  indexes,
		log:      logrus.WithField("component", "txn"),
	}
}

// Begin allocates a fresh transaction, logs a BEGIN record, and puts it
// in the GROWING state.
func (m *Manager) Begin(startTime int64) (*Transaction, error) {
	id := TxnID(atomic.AddInt64(&m.counter, 1))
	t := New(id, startTime)
	t.SetState(Growing)

	lsn, err := m.logMgr.AddLogToBuffer(wal.NewBeginRecord(int32(id)))
	if err != nil {
		return nil, fmt.Errorf("txn: logging begin: %w", err)
	}
	t.SetPrevLSN(lsn)

	m.mu.Lock()
	m.actives[id] = t
	m.mu.Unlock()

	m.log.WithField("txn", id).Debug("began transaction")
	return t, nil
}

// Active looks up a still-running transaction by id.
func (m *Manager) Active(id TxnID) (*Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.actives[id]
	return t, ok
}

// Commit logs a COMMIT record, flushes the log up to it (a committed
// transaction's log records must be durable before the caller is told
// it succeeded), releases every held lock, and retires t.
func (m *Manager) Commit(t *Transaction) error {
	lsn, err := m.logMgr.AddLogToBuffer(wal.NewCommitRecord(int32(t.ID()), t.PrevLSN()))
	if err != nil {
		return fmt.Errorf("txn: logging commit: %w", err)
	}
	t.SetPrevLSN(lsn)
	if err := m.logMgr.FlushLogToDisk(); err != nil {
		return fmt.Errorf("txn: flushing commit: %w", err)
	}

	t.SetState(Committed)
	m.releaser.ReleaseAll(t)
	m.retire(t)
	m.log.WithField("txn", t.ID()).Debug("committed transaction")
	return nil
}

// Abort walks t's write-set in reverse, undoing each write through the
// resolved RecordFile/IndexFile, logs ABORT, releases locks, and retires
// t. Undo happens before the locks are released, so no other
// transaction can observe the aborted writes in between.
func (m *Manager) Abort(t *Transaction) error {
	writes := t.WriteSet()
	for i := len(writes) - 1; i >= 0; i-- {
		if err := m.undo(writes[i]); err != nil {
			return fmt.Errorf("txn: undo write %d: %w", i, err)
		}
	}

	lsn, err := m.logMgr.AddLogToBuffer(wal.NewAbortRecord(int32(t.ID()), t.PrevLSN()))
	if err != nil {
		return fmt.Errorf("txn: logging abort: %w", err)
	}
	t.SetPrevLSN(lsn)
	if err := m.logMgr.FlushLogToDisk(); err != nil {
		return fmt.Errorf("txn: flushing abort: %w", err)
	}

	t.SetState(Aborted)
	m.releaser.ReleaseAll(t)
	m.retire(t)
	m.log.WithField("txn", t.ID()).Debug("aborted transaction")
	return nil
}

func (m *Manager) undo(w WriteRecord) error {
	switch w.Target {
	case TargetRow:
		rf := m.tables(w.FileHandle)
		switch w.Kind {
		case WriteInsert:
			_, err := rf.Delete(w.Rid)
			return err
		case WriteDelete:
			return rf.InsertAt(w.Rid, w.OldValue)
		case WriteUpdate:
			_, err := rf.Update(w.Rid, w.OldValue)
			return err
		}
	case TargetIndex:
		ix := m.indexes(w.FileHandle)
		switch w.Kind {
		case WriteInsert:
			_, err := ix.Delete(w.NewValue)
			return err
		case WriteDelete:
			return ix.Insert(w.OldValue, heap.EncodeRid(w.Rid))
		case WriteUpdate:
			if _, err := ix.Delete(w.NewValue); err != nil {
				return err
			}
			return ix.Insert(w.OldValue, heap.EncodeRid(w.Rid))
		}
	}
	return fmt.Errorf("txn: unrecognized write record %#v", w)
}

func (m *Manager) retire(t *Transaction) {
	m.mu.Lock()
	delete(m.actives, t.ID())
	m.mu.Unlock()
}

// logTable names a heap/index file for the WAL's table_name field; the
// manager only knows file handles, so it stringifies them. The engine's
// catalog is the source of truth for the human-readable name.
func logTable(fileHandle int32) string { return strconv.Itoa(int(fileHandle)) }

// LogInsert appends an INSERT record for a row write and advances t's
// prevLSN, the physiological-logging style used for every heap operation.
func (m *Manager) LogInsert(t *Transaction, fileHandle int32, rid heap.Rid, value []byte) error {
	return m.appendRecordLog(t, wal.NewInsertRecord(int32(t.ID()), t.PrevLSN(), logTable(fileHandle), wal.Rid{PageNum: rid.PageNum, Slot: rid.Slot}, value))
}

func (m *Manager) LogDelete(t *Transaction, fileHandle int32, rid heap.Rid, deleted []byte) error {
	return m.appendRecordLog(t, wal.NewDeleteRecord(int32(t.ID()), t.PrevLSN(), logTable(fileHandle), wal.Rid{PageNum: rid.PageNum, Slot: rid.Slot}, deleted))
}

func (m *Manager) LogUpdate(t *Transaction, fileHandle int32, rid heap.Rid, old, new_ []byte) error {
	return m.appendRecordLog(t, wal.NewUpdateRecord(int32(t.ID()), t.PrevLSN(), logTable(fileHandle), wal.Rid{PageNum: rid.PageNum, Slot: rid.Slot}, old, new_))
}

// LogNewPage appends a NEWPAGE record, wired to heap.TableHeap.OnNewPage
// so every page the chain grows by is logged before a record is placed on it.
func (m *Manager) LogNewPage(t *Transaction, fileHandle int32, pageNum int64) error {
	return m.appendRecordLog(t, wal.NewNewPageRecord(int32(t.ID()), t.PrevLSN(), logTable(fileHandle), int32(pageNum)))
}

func (m *Manager) appendRecordLog(t *Transaction, rec *wal.Record) error {
	lsn, err := m.logMgr.AddLogToBuffer(rec)
	if err != nil {
		return err
	}
	t.SetPrevLSN(lsn)
	return nil
}
