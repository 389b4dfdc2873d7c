// Package buffer implements a bounded frame pool, grounded on
// thetarby-helindb/buffer.BufferPool: a page table, a free-list of
// unused frames, and an LRU replacer over unpinned frames, with the
// WAL-before-data rule enforced at eviction.
package buffer

import (
	"fmt"
	"sync"

	"ridgedb/dberr"
	"ridgedb/disk"
	"ridgedb/disk/pages"
	"ridgedb/wal"

	"github.com/sirupsen/logrus"
)

// Pool is the interface the rest of the core depends on, grounded on
// thetarby-helindb/buffer.Pool.
type Pool interface {
	Fetch(id pages.PageID) (*pages.RawPage, error)
	Unpin(id pages.PageID, dirty bool) bool
	NewPage(fileHandle int32) (*pages.RawPage, error)
	Flush(id pages.PageID) error
	FlushAll(fileHandle int32) error
	DeletePage(id pages.PageID) error
	UpdatePageLSN(id pages.PageID, lsn pages.LSN) error
	PageSize() int
}

var _ Pool = &BufferPool{}

type BufferPool struct {
	mu sync.Mutex

	poolSize  int
	pageSize  int
	frames    []*pages.RawPage
	pageTable map[pages.PageID]int
	freeList  []int

	replacer Replacer
	disk     *disk.Manager
	logMgr   *wal.LogManager

	stats struct {
		hits, misses, evictions int64
	}
	log *logrus.Entry
}

func NewBufferPool(poolSize int, d *disk.Manager, logMgr *wal.LogManager) *BufferPool {
	freeList := make([]int, poolSize)
	for i := range freeList {
		freeList[i] = i
	}

	return &BufferPool{
		poolSize:  poolSize,
		pageSize:  d.PageSize(),
		frames:    make([]*pages.RawPage, poolSize),
		pageTable: map[pages.PageID]int{},
		freeList:  freeList,
		replacer:  NewLruReplacer(poolSize),
		disk:      d,
		logMgr:    logMgr,
		log:       logrus.WithField("component", "buffer"),
	}
}

func (b *BufferPool) PageSize() int { return b.pageSize }

// Fetch pins and returns the page, reading it from disk on a miss. It
// returns dberr.ErrPoolExhausted if every frame is pinned.
func (b *BufferPool) Fetch(id pages.PageID) (*pages.RawPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable[id]; ok {
		b.pinLocked(frameID)
		b.stats.hits++
		return b.frames[frameID], nil
	}
	b.stats.misses++

	frameID, err := b.allocFrameLocked()
	if err != nil {
		return nil, err
	}

	p := pages.NewRawPage(id, b.pageSize)
	if err := b.disk.ReadPage(id, p.GetWholeData()); err != nil {
		b.freeList = append(b.freeList, frameID)
		return nil, fmt.Errorf("buffer: fetching %+v: %w", id, err)
	}

	b.frames[frameID] = p
	b.pageTable[id] = frameID
	b.pinLocked(frameID)
	return p, nil
}

func (b *BufferPool) pinLocked(frameID int) {
	p := b.frames[frameID]
	p.IncrPinCount()
	b.replacer.Pin(frameID)
}

// Unpin decrements the page's pin count; the dirty flag is sticky — a
// false value never clears an already-dirty page.
func (b *BufferPool) Unpin(id pages.PageID, dirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[id]
	if !ok {
		return false
	}

	p := b.frames[frameID]
	if p.GetPinCount() <= 0 {
		return false
	}
	if dirty {
		p.SetDirty()
	}

	p.DecrPinCount()
	if p.GetPinCount() == 0 {
		b.replacer.Unpin(frameID)
	}
	return true
}

// NewPage allocates a fresh page number under fileHandle, resets a frame
// to zero, pins it and returns it.
func (b *BufferPool) NewPage(fileHandle int32) (*pages.RawPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, err := b.allocFrameLocked()
	if err != nil {
		return nil, err
	}

	pageNum, err := b.disk.NewPage(fileHandle)
	if err != nil {
		b.freeList = append(b.freeList, frameID)
		return nil, fmt.Errorf("buffer: allocating new page: %w", err)
	}

	id := pages.PageID{FileHandle: fileHandle, PageNum: pageNum}
	p := pages.NewRawPage(id, b.pageSize)
	b.frames[frameID] = p
	b.pageTable[id] = frameID
	b.pinLocked(frameID)
	p.SetDirty()
	return p, nil
}

// Flush writes the frame's bytes to disk unconditionally and clears the
// dirty flag.
func (b *BufferPool) Flush(id pages.PageID) error {
	b.mu.Lock()
	frameID, ok := b.pageTable[id]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	p := b.frames[frameID]
	b.mu.Unlock()

	if err := b.disk.WritePage(p.GetWholeData(), id); err != nil {
		return fmt.Errorf("buffer: flushing %+v: %w", id, err)
	}
	p.SetClean()
	return nil
}

// FlushAll flushes every resident page belonging to fileHandle.
func (b *BufferPool) FlushAll(fileHandle int32) error {
	b.mu.Lock()
	var ids []pages.PageID
	for id := range b.pageTable {
		if id.FileHandle == fileHandle {
			ids = append(ids, id)
		}
	}
	b.mu.Unlock()

	for _, id := range ids {
		if err := b.Flush(id); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage writes back and evicts a page, returning the frame to the
// free-list. It fails if the page is still pinned.
func (b *BufferPool) DeletePage(id pages.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable[id]
	if !ok {
		return nil
	}

	p := b.frames[frameID]
	if p.GetPinCount() > 0 {
		return fmt.Errorf("buffer: deleting pinned page %+v (pin count %d)", id, p.GetPinCount())
	}

	if p.IsDirty() {
		if err := b.disk.WritePage(p.GetWholeData(), id); err != nil {
			return fmt.Errorf("buffer: flushing before delete %+v: %w", id, err)
		}
	}

	delete(b.pageTable, id)
	b.frames[frameID] = nil
	b.freeList = append(b.freeList, frameID)
	return nil
}

// UpdatePageLSN fetches the page, sets its page-LSN, and unpins it dirty.
func (b *BufferPool) UpdatePageLSN(id pages.PageID, lsn pages.LSN) error {
	p, err := b.Fetch(id)
	if err != nil {
		return err
	}
	p.SetPageLSN(lsn)
	b.Unpin(id, true)
	return nil
}

// allocFrameLocked returns a frame ready to hold a new page, preferring
// the free-list and falling back to eviction via the replacer.
func (b *BufferPool) allocFrameLocked() (int, error) {
	if n := len(b.freeList); n > 0 {
		frameID := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return frameID, nil
	}

	return b.evictVictimLocked()
}

// evictVictimLocked chooses a victim via the replacer, enforces
// WAL-before-data if it is dirty, writes it back, and frees its slot in
// the page table. The caller must hold b.mu.
func (b *BufferPool) evictVictimLocked() (int, error) {
	frameID, ok := b.replacer.ChooseVictim()
	if !ok {
		return 0, dberr.ErrPoolExhausted
	}

	victim := b.frames[frameID]
	if victim == nil {
		return frameID, nil
	}
	if victim.GetPinCount() != 0 {
		panic(fmt.Sprintf("buffer: chose a pinned page as victim, pin count %d", victim.GetPinCount()))
	}

	if victim.IsDirty() {
		if victim.GetPageLSN() > b.logMgr.PersistLSN() {
			if err := b.logMgr.FlushLogToDisk(); err != nil {
				return 0, fmt.Errorf("buffer: WAL-before-data flush: %w", err)
			}
		}
		if err := b.disk.WritePage(victim.GetWholeData(), victim.GetPageId()); err != nil {
			return 0, fmt.Errorf("buffer: writing back victim: %w", err)
		}
		b.stats.evictions++
	}

	delete(b.pageTable, victim.GetPageId())
	b.frames[frameID] = nil
	return frameID, nil
}

// HitRate reports the cache hit ratio observed so far.
func (b *BufferPool) HitRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := b.stats.hits + b.stats.misses
	if total == 0 {
		return 0
	}
	return float64(b.stats.hits) / float64(total)
}
