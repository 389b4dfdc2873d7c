package catalog

import (
	"encoding/binary"

	"ridgedb/catalog/db_types"
)

// tiebreakerLength is the width of the trailing signed int32 that BuildKey
// appends to every index key after the column bytes. Row-backed entries
// all carry -1, so two rows with equal column values build the same key;
// a probe key can carry another value to position a seek among entries
// with equal column values.
const tiebreakerLength = 4

// BuildKey concatenates the byte representation of values (one per
// idx.Columns, in order) followed by a 4-byte big-endian signed
// tiebreaker. A nil value is only valid for a nullable column and is
// encoded as a zero-flag byte with zero-filled value bytes, so that it
// sorts before every non-NULL value of that column's type.
func BuildKey(idx *IndexInfo, values []*db_types.Value, tiebreaker int32) []byte {
	key := make([]byte, idx.KeyLength)
	for i, col := range idx.Columns {
		off := idx.columnOffsets[i]
		v := values[i]
		if v == nil {
			continue // zero-filled flag + value bytes already
		}
		if col.Nullable {
			key[off] = 1
			off++
		}
		db_types.GetType(col.Type).Serialize(key[off:off+col.ByteLength], v)
	}
	binary.BigEndian.PutUint32(key[idx.TiebreakerOff:], uint32(tiebreaker))
	return key
}

// IndexValues projects a row's values onto an index's column list, in
// the order BuildKey expects, looking each column up by name in schema
// since a row's Values slice is ordered by the table's column order,
// not the index's.
func IndexValues(idx *IndexInfo, schema *Schema, row *Tuple) []*db_types.Value {
	out := make([]*db_types.Value, len(idx.Columns))
	for i, col := range idx.Columns {
		out[i] = row.Values[schema.ColumnIndex(col.Name)]
	}
	return out
}

// Tiebreaker extracts the trailing tiebreaker from an encoded key.
func Tiebreaker(idx *IndexInfo, key []byte) int32 {
	return int32(binary.BigEndian.Uint32(key[idx.TiebreakerOff:]))
}

// CompareKeys orders two encoded index keys: lexicographic across
// columns, each compared by its own type's Compare (a NULL column sorts
// before every non-NULL value), with the tiebreaker compared last as a
// signed integer.
func CompareKeys(idx *IndexInfo, a, b []byte) int {
	for i, col := range idx.Columns {
		off := idx.columnOffsets[i]
		var av, bv *db_types.Value
		dt := db_types.GetType(col.Type)

		aOff, bOff := off, off
		aNull, bNull := false, false
		if col.Nullable {
			aNull = a[off] == 0
			bNull = b[off] == 0
			aOff++
			bOff++
		}
		if aNull != bNull {
			if aNull {
				return -1
			}
			return 1
		}
		if aNull {
			continue // both NULL, equal on this column
		}
		av = dt.Deserialize(a[aOff : aOff+col.ByteLength])
		bv = dt.Deserialize(b[bOff : bOff+col.ByteLength])
		if c := dt.Compare(av, bv); c != 0 {
			return c
		}
	}
	at, bt := Tiebreaker(idx, a), Tiebreaker(idx, b)
	switch {
	case at < bt:
		return -1
	case at > bt:
		return 1
	default:
		return 0
	}
}
