package catalog

import (
	"fmt"
	"sync"
)

// Catalog is the in-memory table/index registry: a name -> metadata map
// plus a file-handle -> metadata map for the core's hot-path lookups
// (recovery and execution address files by handle, SQL text addresses
// them by name). Grounded on
// thetarby-helindb/catalog.InMemCatalog, with the OID indirection
// dropped in favor of keying directly by name and by the disk-layer
// file handle the table/index already carries.
type Catalog struct {
	mu sync.RWMutex

	tables      map[string]*TableInfo
	tablesByFh  map[int32]*TableInfo
	indexesByFh map[int32]*IndexInfo
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables:      map[string]*TableInfo{},
		tablesByFh:  map[int32]*TableInfo{},
		indexesByFh: map[int32]*IndexInfo{},
	}
}

// AddTable registers a table that has already been created on disk
// (its heap file opened, its TableInfo built). Returns an error if the
// name is already taken.
func (c *Catalog) AddTable(t *TableInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[t.Name]; ok {
		return fmt.Errorf("catalog: table %q already exists", t.Name)
	}
	c.tables[t.Name] = t
	c.tablesByFh[t.FileHandle] = t
	return nil
}

func (c *Catalog) GetTable(name string) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

func (c *Catalog) GetTableByFileHandle(fh int32) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tablesByFh[fh]
	return t, ok
}

// Tables returns every registered table, for catalog persistence and
// for recovery's post-redo index rebuild.
func (c *Catalog) Tables() []*TableInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*TableInfo, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	return out
}

// AddIndex registers idx on its owning table, recorded both on the
// TableInfo and in the catalog's file-handle index.
func (c *Catalog) AddIndex(idx *IndexInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[idx.TableName]
	if !ok {
		return fmt.Errorf("catalog: index %q references unknown table %q", idx.Name, idx.TableName)
	}
	if t.Index(idx.Name) != nil {
		return fmt.Errorf("catalog: index %q already exists on table %q", idx.Name, idx.TableName)
	}
	t.AddIndex(idx)
	c.indexesByFh[idx.FileHandle] = idx
	return nil
}

func (c *Catalog) GetIndex(tableName, indexName string) (*IndexInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[tableName]
	if !ok {
		return nil, false
	}
	idx := t.Index(indexName)
	return idx, idx != nil
}

func (c *Catalog) GetIndexByFileHandle(fh int32) (*IndexInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexesByFh[fh]
	return idx, ok
}
