package lockmgr

import (
	"testing"

	"ridgedb/dberr"
	"ridgedb/heap"
	"ridgedb/txn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTxn(id int64) *txn.Transaction { return txn.New(txn.TxnID(id), id) }

func TestManager_Acquire_CompatibleModesBothSucceed(t *testing.T) {
	m := NewManager()
	id := txn.TableLock(1)
	t1, t2 := newTxn(1), newTxn(2)

	require.NoError(t, m.Acquire(t1, id, IX))
	require.NoError(t, m.Acquire(t2, id, IX), "IX is self-compatible, concurrent inserters must both be granted")
	assert.Equal(t, IX, m.GroupMode(id))
}

func TestManager_Acquire_ConflictingModeFailsImmediately(t *testing.T) {
	m := NewManager()
	id := txn.TableLock(1)
	t1, t2 := newTxn(1), newTxn(2)

	require.NoError(t, m.Acquire(t1, id, X))
	err := m.Acquire(t2, id, S)
	assert.True(t, dberr.Is(err, dberr.KindDeadlockPrevention), "no-wait policy must fail the second request rather than block")
}

func TestManager_Acquire_SameTxnUpgradesViaLatticeJoin(t *testing.T) {
	m := NewManager()
	id := txn.TableLock(1)
	t1 := newTxn(1)

	require.NoError(t, m.Acquire(t1, id, IX))
	require.NoError(t, m.Acquire(t1, id, S))
	assert.Equal(t, SIX, m.GroupMode(id), "IX join S is SIX per the intention lattice")
}

func TestManager_Acquire_AfterShrinking_IsRejected(t *testing.T) {
	m := NewManager()
	id1 := txn.TableLock(1)
	id2 := txn.TableLock(2)
	t1 := newTxn(1)

	require.NoError(t, m.Acquire(t1, id1, S))
	m.Release(t1, id1)
	assert.Equal(t, txn.Shrinking, t1.State())

	err := m.Acquire(t1, id2, S)
	assert.True(t, dberr.Is(err, dberr.KindLockOnShrinking))
}

func TestManager_ReleaseAll_FreesEveryLockInLockSet(t *testing.T) {
	m := NewManager()
	tableID := txn.TableLock(1)
	rowID := txn.RowLock(1, heap.Rid{PageNum: 0, Slot: 0})
	t1 := newTxn(1)

	require.NoError(t, m.Acquire(t1, tableID, IX))
	require.NoError(t, m.Acquire(t1, rowID, X))

	m.ReleaseAll(t1)

	assert.Equal(t, NonLock, m.GroupMode(tableID))
	assert.Equal(t, NonLock, m.GroupMode(rowID))
	assert.Empty(t, t1.LockSet())
}
