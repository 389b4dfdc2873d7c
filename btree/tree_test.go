package btree

import (
	"encoding/binary"
	"testing"

	"ridgedb/buffer"
	"ridgedb/dberr"
	"ridgedb/disk"
	"ridgedb/wal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyLength = 4

func intCmp(a, b []byte) int {
	x, y := binary.BigEndian.Uint32(a), binary.BigEndian.Uint32(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func intKey(v uint32) []byte {
	b := make([]byte, testKeyLength)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	d, err := disk.NewManager(t.TempDir(), 4096)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	logMgr := wal.NewLogManager(d.LogWriter(), 4096)
	pool := buffer.NewBufferPool(16, d, logMgr)

	fh, err := d.OpenFile("idx.idx")
	require.NoError(t, err)

	tree, err := Create(pool, fh, testKeyLength, intCmp)
	require.NoError(t, err)
	return tree
}

func TestTree_InsertGet(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert(intKey(5), []byte("val-0005")))

	val, err := tree.Get(intKey(5))
	require.NoError(t, err)
	assert.Equal(t, "val-0005", string(val[:len("val-0005")]))
}

func TestTree_Get_MissingKey_ReturnsNotFound(t *testing.T) {
	tree := newTestTree(t)
	_, err := tree.Get(intKey(1))
	assert.True(t, dberr.Is(err, dberr.KindIndexEntryNotFound))
}

func TestTree_Insert_DuplicateKeyOverwrites(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert(intKey(5), padValue("a")))
	require.NoError(t, tree.Insert(intKey(5), padValue("b")))

	val, err := tree.Get(intKey(5))
	require.NoError(t, err)
	assert.Equal(t, "b", string(val[:1]))
}

func TestTree_InsertManyKeys_TriggersSplitsAndAllRemainFindable(t *testing.T) {
	tree := newTestTree(t)
	n := uint32(500)
	for i := uint32(0); i < n; i++ {
		require.NoError(t, tree.Insert(intKey(i), padValue("v")))
	}
	for i := uint32(0); i < n; i++ {
		_, err := tree.Get(intKey(i))
		require.NoError(t, err, "key %d should be findable after splits", i)
	}
}

func TestTree_Delete_RemovesKey(t *testing.T) {
	tree := newTestTree(t)
	require.NoError(t, tree.Insert(intKey(1), padValue("a")))
	require.NoError(t, tree.Insert(intKey(2), padValue("b")))

	_, err := tree.Delete(intKey(1))
	require.NoError(t, err)

	_, err = tree.Get(intKey(1))
	assert.True(t, dberr.Is(err, dberr.KindIndexEntryNotFound))

	val, err := tree.Get(intKey(2))
	require.NoError(t, err)
	assert.Equal(t, "b", string(val[:1]))
}

func padValue(s string) []byte {
	out := make([]byte, ValueSize)
	copy(out, s)
	return out
}

// TestTree_StructuralInvariants walks every node reachable from the root
// after a mix of inserts and deletes and checks the occupancy and
// key-count/child-count invariants directly, rather than only through
// Get/Insert/Delete's externally observable behavior.
func TestTree_StructuralInvariants(t *testing.T) {
	tree := newTestTree(t)
	n := uint32(3000)
	for i := uint32(0); i < n; i++ {
		require.NoError(t, tree.Insert(intKey(i), padValue("v")))
	}
	for i := uint32(0); i < n; i += 3 {
		_, err := tree.Delete(intKey(i))
		require.NoError(t, err)
	}

	var walk func(num int64, isRoot bool) int
	walk = func(num int64, isRoot bool) int {
		node, err := tree.fetchNode(num)
		require.NoError(t, err)
		defer tree.unpin(num, false)

		if node.IsLeaf() {
			if !isRoot {
				assert.False(t, node.IsUnderflow(), "leaf %d underflows", num)
			}
			return node.KeyCount()
		}

		if !isRoot {
			assert.False(t, node.IsUnderflow(), "internal node %d underflows", num)
		}
		children := node.KeyCount()
		assert.Greater(t, children, 0, "internal node %d has no children", num)
		total := 0
		for i := 0; i < children; i++ {
			total += walk(node.ChildAt(i), false)
		}
		return total
	}
	walk(tree.rootNum, true)
}
