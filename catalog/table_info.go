package catalog

import "ridgedb/disk/pages"

// TableInfo binds a table's schema to its heap storage location: the file
// handle its pages live in and the page number of its first heap page.
type TableInfo struct {
	Name        string
	Schema      *Schema
	FileHandle  int32
	FirstPageID pages.PageID
	Indexes     []*IndexInfo
}

func NewTableInfo(name string, schema *Schema, fileHandle int32, firstPage pages.PageID) *TableInfo {
	return &TableInfo{Name: name, Schema: schema, FileHandle: fileHandle, FirstPageID: firstPage}
}

func (t *TableInfo) AddIndex(idx *IndexInfo) {
	t.Indexes = append(t.Indexes, idx)
}

func (t *TableInfo) Index(name string) *IndexInfo {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx
		}
	}
	return nil
}
