package execution

import (
	"testing"

	"ridgedb/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIndexScan_FindsExactMatch checks that an indexed point lookup on
// the unique id column returns exactly the matching row via a probe
// into the tree, never touching the heap sequentially.
func TestIndexScan_FindsExactMatch(t *testing.T) {
	env := newTestEnv(t)
	tr := env.begin()
	ctx := env.context(tr)

	ins := NewInsertRaw(ctx, env.table, []*catalog.Tuple{intRow(1, 30), intRow(2, 40), intRow(3, 50)})
	require.NoError(t, ins.Init())
	for {
		_, _, err := ins.Next()
		if err == ErrNoTuple {
			break
		}
		require.NoError(t, err)
	}

	idx := env.table.Indexes[0]
	key := catalog.BuildKey(idx, catalog.IndexValues(idx, env.table.Schema, intRow(2, 40)), dataTiebreaker)

	scan := NewIndexScan(ctx, env.table, idx, key)
	require.NoError(t, scan.Init())

	row, _, err := scan.Next()
	require.NoError(t, err)
	assert.Equal(t, int32(2), row.Values[0].AsInt32())
	assert.Equal(t, int32(40), row.Values[1].AsInt32())

	_, _, err = scan.Next()
	assert.Equal(t, ErrNoTuple, err)
}

func TestIndexScan_MissingKey_YieldsNoTuple(t *testing.T) {
	env := newTestEnv(t)
	tr := env.begin()
	ctx := env.context(tr)

	idx := env.table.Indexes[0]
	key := catalog.BuildKey(idx, catalog.IndexValues(idx, env.table.Schema, intRow(99, 0)), dataTiebreaker)

	scan := NewIndexScan(ctx, env.table, idx, key)
	require.NoError(t, scan.Init())

	_, _, err := scan.Next()
	assert.Equal(t, ErrNoTuple, err)
}
