package heap

import (
	"fmt"
	"sync"

	"ridgedb/buffer"
	"ridgedb/dberr"
	"ridgedb/disk/pages"
)

// Rid identifies a record's position within a table heap, stable across
// updates but reused by delete+reinsert.
type Rid struct {
	PageNum int32
	Slot    int32
}

func (r Rid) String() string { return fmt.Sprintf("(%d,%d)", r.PageNum, r.Slot) }

// EncodeRid packs a Rid into the 8-byte slot width btree leaf values use.
func EncodeRid(r Rid) []byte {
	b := make([]byte, 8)
	b[0] = byte(r.PageNum >> 24)
	b[1] = byte(r.PageNum >> 16)
	b[2] = byte(r.PageNum >> 8)
	b[3] = byte(r.PageNum)
	b[4] = byte(r.Slot >> 24)
	b[5] = byte(r.Slot >> 16)
	b[6] = byte(r.Slot >> 8)
	b[7] = byte(r.Slot)
	return b
}

// DecodeRid is the inverse of EncodeRid.
func DecodeRid(b []byte) Rid {
	return Rid{
		PageNum: int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8 | int32(b[3]),
		Slot:    int32(b[4])<<24 | int32(b[5])<<16 | int32(b[6])<<8 | int32(b[7]),
	}
}

// TableHeap is the record-file collaborator: a doubly linked chain of fixed-length-record pages, addressed by Rid
// and mutated through the buffer pool. OnNewPage, if set, is called
// whenever the chain grows, so the caller can emit a NEWPAGE log record
// before the page is used.
type TableHeap struct {
	pool         buffer.Pool
	fileHandle   int32
	firstPage    pages.PageID
	recordLength int
	capacity     int
	OnNewPage    func(pageNum int64)

	hookMu sync.Mutex
}

// NewTableHeap opens a heap over an already-allocated first page. Use
// CreateTableHeap to initialize a brand-new file.
func NewTableHeap(pool buffer.Pool, fileHandle int32, firstPage pages.PageID, recordLength int) *TableHeap {
	return &TableHeap{
		pool:         pool,
		fileHandle:   fileHandle,
		firstPage:    firstPage,
		recordLength: recordLength,
		capacity:     Capacity(pool.PageSize(), recordLength),
	}
}

// CreateTableHeap allocates and formats the first page of a new heap file.
func CreateTableHeap(pool buffer.Pool, fileHandle int32, recordLength int) (*TableHeap, error) {
	raw, err := pool.NewPage(fileHandle)
	if err != nil {
		return nil, fmt.Errorf("heap: creating first page: %w", err)
	}
	capacity := Capacity(pool.PageSize(), recordLength)
	p := AsPage(raw)
	p.Init(recordLength, capacity)
	id := raw.GetPageId()
	pool.Unpin(id, true)
	return &TableHeap{pool: pool, fileHandle: fileHandle, firstPage: id, recordLength: recordLength, capacity: capacity}, nil
}

func (h *TableHeap) FirstPage() pages.PageID { return h.firstPage }

func (h *TableHeap) fetch(pageNum int32) (*Page, error) {
	raw, err := h.pool.Fetch(pages.PageID{FileHandle: h.fileHandle, PageNum: int64(pageNum)})
	if err != nil {
		return nil, err
	}
	return AsPage(raw), nil
}

func (h *TableHeap) unpin(pageNum int32, dirty bool) {
	h.pool.Unpin(pages.PageID{FileHandle: h.fileHandle, PageNum: int64(pageNum)}, dirty)
}

// Get returns the record at rid, or dberr.ErrIndexEntryNotFound if it has
// been deleted or never existed. (The heap reuses the index taxonomy's
// not-found kind since both denote "no row at this logical address".)
func (h *TableHeap) Get(rid Rid) ([]byte, error) {
	p, err := h.fetch(rid.PageNum)
	if err != nil {
		return nil, err
	}
	defer h.unpin(rid.PageNum, false)

	rec := p.GetRecord(int(rid.Slot))
	if rec == nil {
		return nil, dberr.ErrIndexEntryNotFound
	}
	return rec, nil
}

// Insert appends data as a new record, scanning the page chain for the
// first page with a free slot and allocating a fresh page if none has
// room.
func (h *TableHeap) Insert(data []byte) (Rid, error) {
	if len(data) != h.recordLength {
		return Rid{}, dberr.New(dberr.KindInvalidValueCount,
			fmt.Sprintf("record length %d does not match heap record length %d", len(data), h.recordLength))
	}

	pageNum := int32(h.firstPage.PageNum)
	var lastNum int32
	for pageNum >= 0 {
		p, err := h.fetch(pageNum)
		if err != nil {
			return Rid{}, err
		}
		if slot, ok := p.InsertRecord(data); ok {
			h.unpin(pageNum, true)
			return Rid{PageNum: pageNum, Slot: int32(slot)}, nil
		}
		next := p.Next()
		lastNum = pageNum
		h.unpin(pageNum, false)
		if !next.IsValid() {
			break
		}
		pageNum = int32(next.PageNum)
	}

	raw, err := h.pool.NewPage(h.fileHandle)
	if err != nil {
		return Rid{}, fmt.Errorf("heap: extending chain: %w", err)
	}
	np := AsPage(raw)
	np.Init(h.recordLength, h.capacity)
	newID := raw.GetPageId()
	if h.OnNewPage != nil {
		h.OnNewPage(newID.PageNum)
	}

	lp, err := h.fetch(lastNum)
	if err != nil {
		h.pool.Unpin(newID, false)
		return Rid{}, err
	}
	lp.SetNext(newID)
	h.unpin(lastNum, true)
	np.SetPrev(pages.PageID{FileHandle: h.fileHandle, PageNum: int64(lastNum)})

	slot, ok := np.InsertRecord(data)
	if !ok {
		h.pool.Unpin(newID, true)
		return Rid{}, dberr.New(dberr.KindInternal, "heap: freshly allocated page has no capacity")
	}
	h.pool.Unpin(newID, true)
	return Rid{PageNum: int32(newID.PageNum), Slot: int32(slot)}, nil
}

// InsertLogged is Insert with onNewPage scoped to this single call: the
// transaction performing the insert is the only reader of the page
// number it allocates, so the hook is set, used, and cleared under
// hookMu rather than left as a standing field multiple concurrent
// inserters could race to overwrite.
func (h *TableHeap) InsertLogged(data []byte, onNewPage func(pageNum int64)) (Rid, error) {
	h.hookMu.Lock()
	defer h.hookMu.Unlock()
	h.OnNewPage = onNewPage
	defer func() { h.OnNewPage = nil }()
	return h.Insert(data)
}

// InsertAt re-occupies a specific rid with data, used by recovery's REDO
// pass and by abort's UNDO of a DELETE.
func (h *TableHeap) InsertAt(rid Rid, data []byte) error {
	p, err := h.fetch(rid.PageNum)
	if err != nil {
		return err
	}
	p.SetRecord(int(rid.Slot), data)
	h.unpin(rid.PageNum, true)
	return nil
}

// Update overwrites the record at rid in place, returning the pre-image.
func (h *TableHeap) Update(rid Rid, data []byte) ([]byte, error) {
	p, err := h.fetch(rid.PageNum)
	if err != nil {
		return nil, err
	}
	defer h.unpin(rid.PageNum, true)

	old := p.GetRecord(int(rid.Slot))
	if old == nil {
		return nil, dberr.ErrIndexEntryNotFound
	}
	p.SetRecord(int(rid.Slot), data)
	return old, nil
}

// Delete frees rid's slot, returning the deleted record so the caller can
// log its pre-image.
func (h *TableHeap) Delete(rid Rid) ([]byte, error) {
	p, err := h.fetch(rid.PageNum)
	if err != nil {
		return nil, err
	}
	defer h.unpin(rid.PageNum, true)

	old := p.GetRecord(int(rid.Slot))
	if old == nil {
		return nil, dberr.ErrIndexEntryNotFound
	}
	p.DeleteRecord(int(rid.Slot))
	return old, nil
}

// Scan calls fn for every occupied record in rid order, stopping early if
// fn returns false.
func (h *TableHeap) Scan(fn func(rid Rid, data []byte) bool) error {
	pageNum := int32(h.firstPage.PageNum)
	for pageNum >= 0 {
		p, err := h.fetch(pageNum)
		if err != nil {
			return err
		}
		slot := 0
		for {
			idx, ok := p.NextOccupied(slot)
			if !ok {
				break
			}
			if !fn(Rid{PageNum: pageNum, Slot: int32(idx)}, p.GetRecord(idx)) {
				h.unpin(pageNum, false)
				return nil
			}
			slot = idx + 1
		}
		next := p.Next()
		h.unpin(pageNum, false)
		if !next.IsValid() {
			break
		}
		pageNum = int32(next.PageNum)
	}
	return nil
}

// FirstRid returns the first occupied record's rid, or ok=false if the
// heap holds no records. Used by execution.SeqScan's pull-iteration,
// which cannot use Scan's push-callback shape.
func (h *TableHeap) FirstRid() (rid Rid, ok bool, err error) {
	pageNum := int32(h.firstPage.PageNum)
	for pageNum >= 0 {
		p, err := h.fetch(pageNum)
		if err != nil {
			return Rid{}, false, err
		}
		idx, found := p.NextOccupied(0)
		next := p.Next()
		h.unpin(pageNum, false)
		if found {
			return Rid{PageNum: pageNum, Slot: int32(idx)}, true, nil
		}
		if !next.IsValid() {
			break
		}
		pageNum = int32(next.PageNum)
	}
	return Rid{}, false, nil
}

// NextRid returns the occupied rid following current, or ok=false if
// the chain is exhausted.
func (h *TableHeap) NextRid(current Rid) (rid Rid, ok bool, err error) {
	pageNum := current.PageNum
	startSlot := int(current.Slot) + 1
	for pageNum >= 0 {
		p, err := h.fetch(pageNum)
		if err != nil {
			return Rid{}, false, err
		}
		idx, found := p.NextOccupied(startSlot)
		next := p.Next()
		h.unpin(pageNum, false)
		if found {
			return Rid{PageNum: pageNum, Slot: int32(idx)}, true, nil
		}
		if !next.IsValid() {
			break
		}
		pageNum = int32(next.PageNum)
		startSlot = 0
	}
	return Rid{}, false, nil
}
