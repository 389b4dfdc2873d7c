package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"ridgedb/catalog"
	"ridgedb/catalog/db_types"
)

// columnMeta/tableMeta/indexMeta/databaseMeta mirror catalog.Column /
// catalog.TableInfo / catalog.IndexInfo in a JSON-friendly shape, the
// non-authoritative convenience catalog/column.go's package doc
// reserves for this package: table schemas and index definitions
// survive a restart, but index *contents* are always rebuilt from the
// heap (indexes are never logged), so indexMeta carries no root page or
// key-offset bookkeeping.
type columnMeta struct {
	Name     string         `json:"name"`
	Type     db_types.TypeID `json:"type"`
	Nullable bool           `json:"nullable"`
}

type indexMeta struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

type tableMeta struct {
	Name    string      `json:"name"`
	File    string      `json:"file"`
	Columns []columnMeta `json:"columns"`
	Indexes []indexMeta `json:"indexes"`
}

type databaseMeta struct {
	InstanceID string      `json:"instance_id"`
	Tables     []tableMeta `json:"tables"`
}

func loadMetadata(path string) (*databaseMeta, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &databaseMeta{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("engine: reading metadata: %w", err)
	}
	var meta databaseMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false, fmt.Errorf("engine: decoding metadata: %w", err)
	}
	return &meta, true, nil
}

func saveMetadata(path string, meta *databaseMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: encoding metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("engine: writing metadata: %w", err)
	}
	return nil
}

func tableFileName(table string) string { return table + ".tbl" }

func indexFileName(table, index string) string { return table + "." + index + ".idx" }

func toTableMeta(t *catalog.TableInfo) tableMeta {
	tm := tableMeta{Name: t.Name, File: tableFileName(t.Name)}
	for _, c := range t.Schema.Columns {
		tm.Columns = append(tm.Columns, columnMeta{Name: c.Name, Type: c.Type, Nullable: c.Nullable})
	}
	for _, idx := range t.Indexes {
		im := indexMeta{Name: idx.Name, Unique: idx.Unique}
		for _, c := range idx.Columns {
			im.Columns = append(im.Columns, c.Name)
		}
		tm.Indexes = append(tm.Indexes, im)
	}
	return tm
}
