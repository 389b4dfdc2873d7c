// Package engine wires the storage core's packages into one running
// database, grounded on thetarby-helindb/db.DB's OpenDB: a disk
// manager, a buffer pool, a log manager, a lock manager, a transaction
// manager, a catalog and (on reopen) a recovery pass, all bound to one
// database directory. Catalog *persistence* lives here, not in
// catalog, per that package's doc comment.
package engine

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"ridgedb/btree"
	"ridgedb/buffer"
	"ridgedb/catalog"
	"ridgedb/config"
	"ridgedb/disk"
	"ridgedb/disk/pages"
	"ridgedb/execution"
	"ridgedb/heap"
	"ridgedb/lockmgr"
	"ridgedb/recovery"
	"ridgedb/txn"
	"ridgedb/wal"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const metadataFile = "meta.json"

// Database is one open storage core instance: the composition root every
// other package's constructor is called from.
type Database struct {
	dir        string
	cfg        config.Config
	instanceID uuid.UUID

	disk   *disk.Manager
	pool   *buffer.BufferPool
	logMgr *wal.LogManager
	locks  *lockmgr.Manager
	txnMgr *txn.Manager
	cat    *catalog.Catalog

	mu      sync.Mutex
	heaps   map[int32]*heap.TableHeap
	indexes map[int32]*btree.Tree

	log *logrus.Entry
}

// Open opens (creating if absent) a database directory, replaying the
// write-ahead log and rebuilding every index if the directory already
// held a database.
func Open(dir string, cfg config.Config) (*Database, error) {
	d, err := disk.NewManager(dir, cfg.PageSize)
	if err != nil {
		return nil, err
	}

	metaPath := filepath.Join(dir, metadataFile)
	meta, existed, err := loadMetadata(metaPath)
	if err != nil {
		return nil, err
	}

	instanceID := uuid.New()
	if existed && meta.InstanceID != "" {
		if id, err := uuid.Parse(meta.InstanceID); err == nil {
			instanceID = id
		}
	}

	logMgr := wal.NewLogManager(d.LogWriter(), cfg.LogBufferSize)
	pool := buffer.NewBufferPool(cfg.BufferPoolSize, d, logMgr)
	locks := lockmgr.NewManager()
	cat := catalog.NewCatalog()

	db := &Database{
		dir:        dir,
		cfg:        cfg,
		instanceID: instanceID,
		disk:       d,
		pool:       pool,
		logMgr:     logMgr,
		locks:      locks,
		cat:        cat,
		heaps:      map[int32]*heap.TableHeap{},
		indexes:    map[int32]*btree.Tree{},
		log:        logrus.WithField("component", "engine").WithField("instance", instanceID.String()),
	}
	db.txnMgr = txn.NewManager(logMgr, locks,
		func(fh int32) txn.RecordFile { return db.heapFor(fh) },
		func(fh int32) txn.IndexFile { return db.indexFor(fh) })

	if existed {
		if err := db.reopenTables(meta); err != nil {
			return nil, err
		}
		rm := recovery.NewManager(d, pool, cat,
			func(fh int32) recovery.RecordFile { return db.heapFor(fh) },
			db.rebuildIndexes)
		if err := rm.Run(); err != nil {
			return nil, fmt.Errorf("engine: recovery: %w", err)
		}
		db.log.Info("recovered existing database")
	}

	if err := db.persistMetadata(); err != nil {
		return nil, err
	}
	return db, nil
}

// reopenTables opens every table's heap file named in meta, without
// trusting any stored index structure — indexes are rebuilt from the
// heap by recovery's index-rebuild pass regardless of whether this was
// a clean shutdown.
func (db *Database) reopenTables(meta *databaseMeta) error {
	for _, tm := range meta.Tables {
		fh, err := db.disk.OpenFile(tm.File)
		if err != nil {
			return err
		}
		cols := make([]catalog.Column, len(tm.Columns))
		for i, c := range tm.Columns {
			cols[i] = catalog.NewColumn(tm.Name, c.Name, c.Type, c.Nullable)
		}
		schema := catalog.NewSchema(tm.Name, cols)
		th := heap.NewTableHeap(db.pool, fh, firstPageOf(fh), schema.TotalLength)

		info := catalog.NewTableInfo(tm.Name, schema, fh, firstPageOf(fh))
		if err := db.cat.AddTable(info); err != nil {
			return err
		}
		db.mu.Lock()
		db.heaps[fh] = th
		db.mu.Unlock()

		for _, im := range tm.Indexes {
			idxFh, err := db.disk.OpenFile(indexFileName(tm.Name, im.Name))
			if err != nil {
				return err
			}
			cols := make([]catalog.Column, len(im.Columns))
			for i, name := range im.Columns {
				cols[i] = schema.Columns[schema.ColumnIndex(name)]
			}
			idx := catalog.NewIndexInfo(im.Name, tm.Name, cols, im.Unique, idxFh, firstPageOf(idxFh))
			if err := db.cat.AddIndex(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

// firstPageOf is the page id of a heap or index file's first page. Every
// table/index lives in its own file, so its first page is always page 0
// of that file.
func firstPageOf(fh int32) pages.PageID {
	return pages.PageID{FileHandle: fh, PageNum: 0}
}

func (db *Database) heapFor(fh int32) *heap.TableHeap {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.heaps[fh]
}

func (db *Database) indexFor(fh int32) *btree.Tree {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.indexes[fh]
}

// Catalog exposes the registry of open tables/indexes, read by callers
// building execution trees.
func (db *Database) Catalog() *catalog.Catalog { return db.cat }

// CreateTable formats and registers a brand-new heap file. It is DDL:
// it does not run inside a transaction, since schema changes are not
// transactional.
func (db *Database) CreateTable(name string, columns []catalog.Column) (*catalog.TableInfo, error) {
	if _, ok := db.cat.GetTable(name); ok {
		return nil, fmt.Errorf("engine: table %q already exists", name)
	}
	schema := catalog.NewSchema(name, columns)

	fh, err := db.disk.OpenFile(tableFileName(name))
	if err != nil {
		return nil, err
	}
	th, err := heap.CreateTableHeap(db.pool, fh, schema.TotalLength)
	if err != nil {
		return nil, err
	}

	info := catalog.NewTableInfo(name, schema, fh, th.FirstPage())
	if err := db.cat.AddTable(info); err != nil {
		return nil, err
	}
	db.mu.Lock()
	db.heaps[fh] = th
	db.mu.Unlock()

	if err := db.persistMetadata(); err != nil {
		return nil, err
	}
	return info, nil
}

// CreateIndex formats an empty index file and populates it from the
// table's current heap contents, then registers it in the catalog.
func (db *Database) CreateIndex(tableName, indexName string, columnNames []string, unique bool) (*catalog.IndexInfo, error) {
	table, ok := db.cat.GetTable(tableName)
	if !ok {
		return nil, fmt.Errorf("engine: table %q does not exist", tableName)
	}
	cols := make([]catalog.Column, len(columnNames))
	for i, name := range columnNames {
		ci := table.Schema.ColumnIndex(name)
		if ci < 0 {
			return nil, fmt.Errorf("engine: table %q has no column %q", tableName, name)
		}
		cols[i] = table.Schema.Columns[ci]
	}

	fh, err := db.disk.OpenFile(indexFileName(tableName, indexName))
	if err != nil {
		return nil, err
	}
	info := catalog.NewIndexInfo(indexName, tableName, cols, unique, fh, pages.PageID{})
	tree, err := btree.Create(db.pool, fh, info.KeyLength, keyComparator(info))
	if err != nil {
		return nil, err
	}
	info.RootPageID = tree.RootID()

	if err := db.cat.AddIndex(info); err != nil {
		return nil, err
	}
	db.mu.Lock()
	db.indexes[fh] = tree
	db.mu.Unlock()

	if err := db.populateIndex(table, info, tree); err != nil {
		return nil, err
	}
	if err := db.persistMetadata(); err != nil {
		return nil, err
	}
	return info, nil
}

// recoveryDataTiebreaker mirrors execution.dataTiebreaker: every
// row-backed index entry carries tiebreaker -1.
const recoveryDataTiebreaker = int32(-1)

func keyComparator(idx *catalog.IndexInfo) btree.Comparator {
	return func(a, b []byte) int { return catalog.CompareKeys(idx, a, b) }
}

// populateIndex scans table's heap and inserts every row's key into
// tree, used both by CreateIndex and by rebuildIndexes after recovery.
func (db *Database) populateIndex(table *catalog.TableInfo, idx *catalog.IndexInfo, tree *btree.Tree) error {
	h := db.heapFor(table.FileHandle)
	rid, ok, err := h.FirstRid()
	if err != nil {
		return err
	}
	for ok {
		data, err := h.Get(rid)
		if err != nil {
			return err
		}
		row, err := catalog.Decode(table.Schema, data)
		if err != nil {
			return err
		}
		key := catalog.BuildKey(idx, catalog.IndexValues(idx, table.Schema, row), recoveryDataTiebreaker)
		if err := tree.Insert(key, heap.EncodeRid(rid)); err != nil {
			return err
		}
		rid, ok, err = h.NextRid(rid)
		if err != nil {
			return err
		}
	}
	return nil
}

// rebuildIndexes drops and repopulates every index registered on table,
// recovery's IndexBuilder callback: index contents are never logged, so
// they are untrustworthy after any crash and must be rederived from the
// table's now-recovered heap.
func (db *Database) rebuildIndexes(table *catalog.TableInfo) error {
	for _, idx := range table.Indexes {
		if err := db.disk.Truncate(idx.FileHandle); err != nil {
			return err
		}
		tree, err := btree.Create(db.pool, idx.FileHandle, idx.KeyLength, keyComparator(idx))
		if err != nil {
			return err
		}
		idx.RootPageID = tree.RootID()
		db.mu.Lock()
		db.indexes[idx.FileHandle] = tree
		db.mu.Unlock()
		if err := db.populateIndex(table, idx, tree); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) persistMetadata() error {
	meta := &databaseMeta{InstanceID: db.instanceID.String()}
	for _, t := range db.cat.Tables() {
		meta.Tables = append(meta.Tables, toTableMeta(t))
	}
	return saveMetadata(filepath.Join(db.dir, metadataFile), meta)
}

// Begin starts a new transaction.
func (db *Database) Begin(startTime int64) (*txn.Transaction, error) {
	return db.txnMgr.Begin(startTime)
}

func (db *Database) Commit(t *txn.Transaction) error { return db.txnMgr.Commit(t) }

func (db *Database) Abort(t *txn.Transaction) error { return db.txnMgr.Abort(t) }

// NewContext builds an execution.Context bound to t, ready to drive
// executors against this database's open tables and indexes.
func (db *Database) NewContext(t *txn.Transaction) *execution.Context {
	return execution.NewContext(t, db.cat, db.locks, db.txnMgr, db.heapFor, db.indexFor)
}

// Close flushes every dirty page and the log buffer, persists the
// catalog, seals the log into a compressed archive segment if it has
// grown past wal.SegmentSizeThreshold, and closes every open file.
func (db *Database) Close() error {
	db.mu.Lock()
	handles := make([]int32, 0, len(db.heaps)+len(db.indexes))
	for fh := range db.heaps {
		handles = append(handles, fh)
	}
	for fh := range db.indexes {
		handles = append(handles, fh)
	}
	db.mu.Unlock()

	for _, fh := range handles {
		if err := db.pool.FlushAll(fh); err != nil {
			return err
		}
	}
	if err := db.logMgr.FlushLogToDisk(); err != nil {
		return err
	}
	if err := db.persistMetadata(); err != nil {
		return err
	}
	if err := db.disk.Sync(); err != nil {
		return err
	}
	if err := db.sealLogIfLarge(); err != nil {
		return err
	}
	return db.disk.Close()
}

// sealLogIfLarge archives the log file to a compressed, timestamped
// segment once it crosses wal.SegmentSizeThreshold. The live log file
// is left untouched — sealing is a backup/archival convenience, not log
// rotation, so recovery's LSN-to-offset bookkeeping is never disturbed.
func (db *Database) sealLogIfLarge() error {
	size, err := db.disk.LogSize()
	if err != nil {
		return err
	}
	if size < wal.SegmentSizeThreshold {
		return nil
	}

	sealedPath := filepath.Join(db.dir, fmt.Sprintf("wal-%s-%d.seg", db.instanceID.String(), time.Now().UnixNano()))
	compressed, err := wal.SealSegment(db.disk.LogPath(), sealedPath)
	if err != nil {
		return fmt.Errorf("engine: sealing log segment: %w", err)
	}
	db.log.WithField("bytes_before", size).WithField("bytes_after", compressed).WithField("path", sealedPath).Info("sealed log segment")
	return nil
}
