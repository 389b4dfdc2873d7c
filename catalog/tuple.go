package catalog

import (
	"fmt"

	"ridgedb/catalog/db_types"
	"ridgedb/dberr"
)

// Tuple is a decoded row: one *db_types.Value per column, matching the
// insert-statement column order.
type Tuple struct {
	Values []*db_types.Value
}

// Encode serializes values into a record's fixed-length byte layout per
// schema. It returns dberr.KindInvalidValueCount if the arity doesn't
// match and dberr.KindIncompatibleType if a value's type doesn't match
// its column.
func Encode(schema *Schema, values []*db_types.Value) ([]byte, error) {
	if len(values) != len(schema.Columns) {
		return nil, dberr.New(dberr.KindInvalidValueCount,
			fmt.Sprintf("expected %d values, got %d", len(schema.Columns), len(values)))
	}

	buf := make([]byte, schema.TotalLength)
	for i, col := range schema.Columns {
		v := values[i]
		if v == nil {
			if !col.Nullable {
				return nil, dberr.New(dberr.KindIncompatibleType,
					fmt.Sprintf("column %s is not nullable", col.Name))
			}
			buf[schema.NullFlagOffset(i)] = 0
			continue
		}
		if v.TypeId().Kind != col.Type.Kind || (col.Type.Kind == db_types.KindFixedString && v.TypeId().Size != col.Type.Size) {
			return nil, dberr.New(dberr.KindIncompatibleType,
				fmt.Sprintf("column %s expects %s, got %s", col.Name, col.Type.Kind, v.TypeId().Kind))
		}
		if col.Nullable {
			buf[schema.NullFlagOffset(i)] = 1
		}
		v.Serialize(buf[schema.SlotOffset(i):])
	}
	return buf, nil
}

// Decode reconstructs a Tuple from a record's bytes.
func Decode(schema *Schema, record []byte) (*Tuple, error) {
	if len(record) != schema.TotalLength {
		return nil, dberr.New(dberr.KindInternal,
			fmt.Sprintf("record length %d does not match schema length %d", len(record), schema.TotalLength))
	}

	values := make([]*db_types.Value, len(schema.Columns))
	for i, col := range schema.Columns {
		if col.Nullable && record[schema.NullFlagOffset(i)] == 0 {
			values[i] = nil
			continue
		}
		slot := record[schema.SlotOffset(i) : schema.SlotOffset(i)+col.ByteLength]
		values[i] = db_types.Deserialize(col.Type, slot)
	}
	return &Tuple{Values: values}, nil
}
