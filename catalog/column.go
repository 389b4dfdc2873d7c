// Package catalog holds the column/schema/table/index metadata that the
// core depends on directly. Catalog *persistence* (loading/saving this
// metadata to the database's metadata file) lives in the engine package
// as a thin, non-authoritative convenience instead, grounded on
// thetarby-helindb/catalog.{column.go,schema.go,table_info.go}.
package catalog

import (
	"fmt"

	"ridgedb/catalog/db_types"
)

// Column describes one column's type and its position inside a table's
// fixed-length record layout.
type Column struct {
	TableName  string
	Name       string
	Type       db_types.TypeID
	ByteLength int
	Offset     int
	Nullable   bool
}

func NewColumn(table, name string, typeID db_types.TypeID, nullable bool) Column {
	return Column{
		TableName:  table,
		Name:       name,
		Type:       typeID,
		ByteLength: db_types.GetType(typeID).Length(),
		Nullable:   nullable,
	}
}

func (c Column) String() string {
	return fmt.Sprintf("%s.%s %s", c.TableName, c.Name, c.Type.Kind)
}
