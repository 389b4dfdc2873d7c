package execution

import (
	"testing"

	"ridgedb/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockNestedLoopJoin_MatchesSamePairsAsNestedLoopJoin(t *testing.T) {
	pred := func(l, r *catalog.Tuple) bool { return l.Values[0].AsInt32() == r.Values[0].AsInt32() }

	left := newFakeExecutor(intSchema("l", "k"), intRow(1), intRow(2), intRow(3))
	right := newFakeExecutor(intSchema("r", "k"), intRow(2), intRow(3), intRow(1))

	join := NewBlockNestedLoopJoin(left, right, pred)
	require.NoError(t, join.Init())

	var got [][2]int32
	for {
		row, _, err := join.Next()
		if err == ErrNoTuple {
			break
		}
		require.NoError(t, err)
		got = append(got, [2]int32{row.Values[0].AsInt32(), row.Values[1].AsInt32()})
	}

	assert.ElementsMatch(t, [][2]int32{{1, 1}, {2, 2}, {3, 3}}, got)
}

func TestBlockNestedLoopJoin_SmallBufferStillFindsEveryMatch(t *testing.T) {
	pred := func(l, r *catalog.Tuple) bool { return l.Values[0].AsInt32() == r.Values[0].AsInt32() }

	rows := make([]*catalog.Tuple, 0, 20)
	for i := int32(0); i < 20; i++ {
		rows = append(rows, intRow(i))
	}
	left := newFakeExecutor(intSchema("l", "k"), rows...)
	right := newFakeExecutor(intSchema("r", "k"), rows...)

	join := NewBlockNestedLoopJoin(left, right, pred)
	join.BufferBytes = 8 // forces many block refills since each int32 row is 4 bytes
	require.NoError(t, join.Init())

	count := 0
	for {
		_, _, err := join.Next()
		if err == ErrNoTuple {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 20, count)
}

func TestRowSize_SumsEachValuesSerializedLength(t *testing.T) {
	row := intRow(1, 2, 3)
	assert.Equal(t, 12, rowSize(row))
}
