package execution

import (
	"testing"

	"ridgedb/catalog"
	"ridgedb/dberr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_WritesRowAndMaintainsIndex(t *testing.T) {
	env := newTestEnv(t)
	tr := env.begin()
	ctx := env.context(tr)

	ins := NewInsertRaw(ctx, env.table, []*catalog.Tuple{intRow(1, 30), intRow(2, 40)})
	require.NoError(t, ins.Init())

	var rows []*catalog.Tuple
	for {
		row, _, err := ins.Next()
		if err == ErrNoTuple {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	assert.Len(t, rows, 2)

	idx := env.table.Indexes[0]
	key := catalog.BuildKey(idx, catalog.IndexValues(idx, env.table.Schema, intRow(1, 30)), dataTiebreaker)
	_, err := env.indexes[idx.FileHandle].Get(key)
	assert.NoError(t, err, "unique index must carry an entry for every inserted row")
}

func TestInsert_DuplicateUniqueKey_FailsWithUniquenessViolation(t *testing.T) {
	env := newTestEnv(t)
	tr := env.begin()
	ctx := env.context(tr)

	ins := NewInsertRaw(ctx, env.table, []*catalog.Tuple{intRow(1, 30), intRow(1, 99)})
	require.NoError(t, ins.Init())

	_, _, err := ins.Next()
	require.NoError(t, err)

	_, _, err = ins.Next()
	assert.True(t, dberr.Is(err, dberr.KindUniquenessViolation))
}
