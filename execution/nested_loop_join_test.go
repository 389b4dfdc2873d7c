package execution

import (
	"testing"

	"ridgedb/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestedLoopJoin_MatchesEveryPairSatisfyingPredicate(t *testing.T) {
	left := newFakeExecutor(intSchema("l", "k"), intRow(1), intRow(2))
	right := newFakeExecutor(intSchema("r", "k"), intRow(1), intRow(2), intRow(1))

	join := NewNestedLoopJoin(left, right, func(l, r *catalog.Tuple) bool {
		return l.Values[0].AsInt32() == r.Values[0].AsInt32()
	})
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

	assert.ElementsMatch(t, [][2]int32{{1, 1}, {1, 1}, {2, 2}}, got)
}

func TestNestedLoopJoin_NoMatches_YieldsNothing(t *testing.T) {
	left := newFakeExecutor(intSchema("l", "k"), intRow(1))
	right := newFakeExecutor(intSchema("r", "k"), intRow(2))

	join := NewNestedLoopJoin(left, right, func(l, r *catalog.Tuple) bool {
		return l.Values[0].AsInt32() == r.Values[0].AsInt32()
	})
	require.NoError(t, join.Init())

	_, _, err := join.Next()
	assert.Equal(t, ErrNoTuple, err)
}

func TestNestedLoopJoin_Schema_ConcatenatesBothSides(t *testing.T) {
	left := newFakeExecutor(intSchema("l", "a"))
	right := newFakeExecutor(intSchema("r", "b"))
	join := NewNestedLoopJoin(left, right, func(l, r *catalog.Tuple) bool { return true })

	schema := join.Schema()
	require.Len(t, schema.Columns, 2)
	assert.Equal(t, "a", schema.Columns[0].Name)
	assert.Equal(t, "b", schema.Columns[1].Name)
}
