package catalog

// Schema is the ordered column list of one table, with each column's
// record offset pre-computed. A nullable column's slot is prefixed by one
// flag byte (0 = NULL, 1 = present) per SPEC_FULL §3's NULL supplement;
// a non-nullable column has no flag byte.
type Schema struct {
	TableName   string
	Columns     []Column
	TotalLength int
}

func NewSchema(tableName string, columns []Column) *Schema {
	s := &Schema{TableName: tableName, Columns: make([]Column, len(columns))}
	offset := 0
	for i, c := range columns {
		c.TableName = tableName
		c.Offset = offset
		if c.Nullable {
			offset++ // leading null flag byte
		}
		s.Columns[i] = c
		offset += c.ByteLength
	}
	s.TotalLength = offset
	return s
}

func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// SlotOffset returns the offset of a column's value bytes (after its null
// flag byte, if any).
func (s *Schema) SlotOffset(idx int) int {
	c := s.Columns[idx]
	if c.Nullable {
		return c.Offset + 1
	}
	return c.Offset
}

// NullFlagOffset returns the offset of a nullable column's flag byte; it
// panics if the column is not nullable.
func (s *Schema) NullFlagOffset(idx int) int {
	c := s.Columns[idx]
	if !c.Nullable {
		panic("catalog: column is not nullable")
	}
	return c.Offset
}
