package execution

import (
	"testing"

	"ridgedb/catalog"
	"ridgedb/catalog/db_types"
	"ridgedb/dberr"
	"ridgedb/heap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertOne(t *testing.T, env *testEnv, ctx *Context, row *catalog.Tuple) heap.Rid {
	ins := NewInsertRaw(ctx, env.table, []*catalog.Tuple{row})
	require.NoError(t, ins.Init())
	_, rid, err := ins.Next()
	require.NoError(t, err)
	return rid
}

func TestUpdate_ChangingNonKeyColumn_Succeeds(t *testing.T) {
	env := newTestEnv(t)
	tr := env.begin()
	ctx := env.context(tr)

	rid := insertOne(t, env, ctx, intRow(1, 30))

	scan := newFakeRidExecutor(env.table.Schema, []*catalog.Tuple{intRow(1, 30)}, []heap.Rid{rid})
	upd := NewUpdate(ctx, env.table, scan, func(old *catalog.Tuple) []*db_types.Value {
		return []*db_types.Value{old.Values[0], db_types.NewInt32(31)}
	})
	require.NoError(t, upd.Init())

	newRow, gotRid, err := upd.Next()
	require.NoError(t, err)
	assert.Equal(t, rid, gotRid)
	assert.Equal(t, int32(31), newRow.Values[1].AsInt32())

	idx := env.table.Indexes[0]
	key := catalog.BuildKey(idx, catalog.IndexValues(idx, env.table.Schema, intRow(1, 31)), dataTiebreaker)
	val, err := env.indexes[idx.FileHandle].Get(key)
	require.NoError(t, err)
	assert.Equal(t, rid, heap.DecodeRid(val))
}

func TestUpdate_ChangingUniqueKeyToOwnPriorValue_IsNotAViolation(t *testing.T) {
	env := newTestEnv(t)
	tr := env.begin()
	ctx := env.context(tr)

	rid := insertOne(t, env, ctx, intRow(1, 30))

	scan := newFakeRidExecutor(env.table.Schema, []*catalog.Tuple{intRow(1, 30)}, []heap.Rid{rid})
	upd := NewUpdate(ctx, env.table, scan, func(old *catalog.Tuple) []*db_types.Value {
		return []*db_types.Value{old.Values[0], old.Values[1]} // key column ("id") unchanged
	})
	require.NoError(t, upd.Init())

	_, _, err := upd.Next()
	assert.NoError(t, err, "an unchanged key must not be mistaken for a collision with itself")
}

func TestUpdate_ChangingUniqueKeyToExistingRow_FailsWithUniquenessViolation(t *testing.T) {
	env := newTestEnv(t)
	tr := env.begin()
	ctx := env.context(tr)

	insertOne(t, env, ctx, intRow(1, 30))
	rid2 := insertOne(t, env, ctx, intRow(2, 40))

	scan := newFakeRidExecutor(env.table.Schema, []*catalog.Tuple{intRow(2, 40)}, []heap.Rid{rid2})
	upd := NewUpdate(ctx, env.table, scan, func(old *catalog.Tuple) []*db_types.Value {
		return []*db_types.Value{db_types.NewInt32(1), old.Values[1]} // collides with row 1's id
	})
	require.NoError(t, upd.Init())

	_, _, err := upd.Next()
	assert.True(t, dberr.Is(err, dberr.KindUniquenessViolation))
}
