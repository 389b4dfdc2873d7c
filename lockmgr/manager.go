package lockmgr

import (
	"sync"

	"ridgedb/dberr"
	"ridgedb/txn"

	"github.com/sirupsen/logrus"
)

// Manager is the lock table: a map of LockDataId to request queue,
// guarded by a single mutex the way
// thetarby-helindb/locker.LockManager guards its lockState map, but
// without the blocking wait queue or background deadlock detector.
type Manager struct {
	mu     sync.Mutex
	queues map[txn.LockDataId]*queue
	log    *logrus.Entry
}

func NewManager() *Manager {
	return &Manager{
		queues: map[txn.LockDataId]*queue{},
		log:    logrus.WithField("component", "lockmgr"),
	}
}

// Acquire grants mode on id to t, enforcing strict two-phase locking and
// a no-wait conflict policy: a transaction that cannot immediately get
// the lock it wants aborts rather than blocking.
func (m *Manager) Acquire(t *txn.Transaction, id txn.LockDataId, mode Mode) error {
	switch t.State() {
	case txn.Committed, txn.Aborted:
		return dberr.New(dberr.KindInternal, "cannot acquire a lock on a finished transaction")
	case txn.Shrinking:
		return dberr.ErrLockOnShrinking
	case txn.Default:
		t.SetState(txn.Growing)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[id]
	if !ok {
		q = newQueue()
		m.queues[id] = q
	}

	current, held := q.holders[t.ID()]
	if held && current == mode {
		return nil
	}

	others := q.groupModeExcluding(t.ID())
	if !compatible(mode, others) {
		return dberr.ErrDeadlockPrevention
	}

	final := mode
	if held {
		final = latticeJoin(current, mode)
	}
	q.grant(t.ID(), final)
	t.AddLock(id)
	return nil
}

// Release pops t's request from id's queue and recomputes the queue's
// group mode. Unknown lock-ids are a no-op (idempotent release). A
// release while GROWING transitions the transaction to SHRINKING.
func (m *Manager) Release(t *txn.Transaction, id txn.LockDataId) {
	m.mu.Lock()
	q, ok := m.queues[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if _, held := q.holders[t.ID()]; !held {
		m.mu.Unlock()
		return
	}
	q.release(t.ID())
	if len(q.holders) == 0 {
		delete(m.queues, id)
	}
	m.mu.Unlock()

	t.RemoveLock(id)
	if t.State() == txn.Growing {
		t.SetState(txn.Shrinking)
	}
}

// ReleaseAll releases every lock in t's lock-set, used by commit and
// abort.
func (m *Manager) ReleaseAll(t *txn.Transaction) {
	for _, id := range t.LockSet() {
		m.Release(t, id)
	}
}

// GroupMode reports the current group mode of id's queue, for tests
// checking lock-table consistency directly.
func (m *Manager) GroupMode(id txn.LockDataId) Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[id]
	if !ok {
		return NonLock
	}
	return q.groupMode()
}

func (m *Manager) SharedCount(id txn.LockDataId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[id]
	if !ok {
		return 0
	}
	return q.SharedCount()
}

func (m *Manager) IxCount(id txn.LockDataId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[id]
	if !ok {
		return 0
	}
	return q.IxCount()
}
