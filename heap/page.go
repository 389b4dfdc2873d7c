// Package heap implements the record-file collaborator: a slotted heap
// page holding fixed-length records addressed by Rid, built on top of
// the buffer pool rather than raw disk I/O, grounded on
// thetarby-helindb/disk/pages/heap_page.go and disk/structures/table_heap.go.
package heap

import (
	"encoding/binary"

	"ridgedb/disk/pages"
)

// Page header layout, relative to RawPage.Content() (i.e. after the
// page-LSN owned by RawPage itself):
//
//	NextFileHandle (4) | NextPageNum (8) | PrevFileHandle (4) | PrevPageNum (8) |
//	SlotCount (4) | RecordLength (4) | ... bitmap ... | ... slots ...
const (
	hdrNextFileHandle = 0
	hdrNextPageNum    = hdrNextFileHandle + 4
	hdrPrevFileHandle = hdrNextPageNum + 8
	hdrPrevPageNum    = hdrPrevFileHandle + 4
	hdrSlotCount      = hdrPrevPageNum + 8
	hdrRecordLength   = hdrSlotCount + 4
	headerEnd         = hdrRecordLength + 4
)

// Page wraps a RawPage with the slotted fixed-length-record layout.
type Page struct {
	*pages.RawPage
}

func AsPage(raw *pages.RawPage) *Page {
	return &Page{RawPage: raw}
}

// Init formats a freshly allocated page to hold capacity records of
// recordLength bytes each.
func (p *Page) Init(recordLength, capacity int) {
	data := p.Content()
	binary.BigEndian.PutUint32(data[hdrSlotCount:], uint32(capacity))
	binary.BigEndian.PutUint32(data[hdrRecordLength:], uint32(recordLength))
	p.SetNext(pages.InvalidPageID)
	p.SetPrev(pages.InvalidPageID)
	bitmap := p.bitmap()
	for i := range bitmap {
		bitmap[i] = 0
	}
	p.SetDirty()
}

func (p *Page) SlotCount() int {
	return int(binary.BigEndian.Uint32(p.Content()[hdrSlotCount:]))
}

func (p *Page) RecordLength() int {
	return int(binary.BigEndian.Uint32(p.Content()[hdrRecordLength:]))
}

func (p *Page) Next() pages.PageID {
	data := p.Content()
	return pages.PageID{
		FileHandle: int32(binary.BigEndian.Uint32(data[hdrNextFileHandle:])),
		PageNum:    int64(binary.BigEndian.Uint64(data[hdrNextPageNum:])),
	}
}

func (p *Page) SetNext(id pages.PageID) {
	data := p.Content()
	binary.BigEndian.PutUint32(data[hdrNextFileHandle:], uint32(id.FileHandle))
	binary.BigEndian.PutUint64(data[hdrNextPageNum:], uint64(id.PageNum))
	p.SetDirty()
}

func (p *Page) Prev() pages.PageID {
	data := p.Content()
	return pages.PageID{
		FileHandle: int32(binary.BigEndian.Uint32(data[hdrPrevFileHandle:])),
		PageNum:    int64(binary.BigEndian.Uint64(data[hdrPrevPageNum:])),
	}
}

func (p *Page) SetPrev(id pages.PageID) {
	data := p.Content()
	binary.BigEndian.PutUint32(data[hdrPrevFileHandle:], uint32(id.FileHandle))
	binary.BigEndian.PutUint64(data[hdrPrevPageNum:], uint64(id.PageNum))
	p.SetDirty()
}

func (p *Page) bitmapBytes() int { return (p.SlotCount() + 7) / 8 }

func (p *Page) bitmap() []byte {
	off := headerEnd
	return p.Content()[off : off+p.bitmapBytes()]
}

func (p *Page) slotsOffset() int { return headerEnd + p.bitmapBytes() }

func (p *Page) occupied(slot int) bool {
	b := p.bitmap()
	return b[slot/8]&(1<<(uint(slot)%8)) != 0
}

func (p *Page) setOccupied(slot int, v bool) {
	b := p.bitmap()
	mask := byte(1 << (uint(slot) % 8))
	if v {
		b[slot/8] |= mask
	} else {
		b[slot/8] &^= mask
	}
	p.SetDirty()
}

func (p *Page) slotBytes(slot int) []byte {
	recLen := p.RecordLength()
	off := p.slotsOffset() + slot*recLen
	return p.Content()[off : off+recLen]
}

// GetRecord returns a copy of the record at slot, or nil if the slot is
// free.
func (p *Page) GetRecord(slot int) []byte {
	if slot < 0 || slot >= p.SlotCount() || !p.occupied(slot) {
		return nil
	}
	out := make([]byte, p.RecordLength())
	copy(out, p.slotBytes(slot))
	return out
}

// InsertRecord places data into the first free slot, returning its index,
// or (-1, false) if the page is full.
func (p *Page) InsertRecord(data []byte) (int, bool) {
	for slot := 0; slot < p.SlotCount(); slot++ {
		if !p.occupied(slot) {
			copy(p.slotBytes(slot), data)
			p.setOccupied(slot, true)
			return slot, true
		}
	}
	return -1, false
}

// SetRecord overwrites an occupied or free slot directly, used for REDO
// and UNDO where the slot index is already known.
func (p *Page) SetRecord(slot int, data []byte) {
	copy(p.slotBytes(slot), data)
	p.setOccupied(slot, true)
}

// DeleteRecord frees slot without zeroing its bytes, so an UNDO can
// resurrect the prior value by re-occupying it.
func (p *Page) DeleteRecord(slot int) {
	p.setOccupied(slot, false)
}

// NextOccupied returns the next occupied slot index at or after from, and
// whether one was found.
func (p *Page) NextOccupied(from int) (int, bool) {
	for slot := from; slot < p.SlotCount(); slot++ {
		if p.occupied(slot) {
			return slot, true
		}
	}
	return 0, false
}

// Capacity computes how many fixed-length records of recordLength bytes
// fit on a page of pageSize bytes, accounting for the header and the
// occupancy bitmap.
func Capacity(pageSize, recordLength int) int {
	avail := pageSize - pages.HeaderSize - headerEnd
	cap := avail / recordLength
	for cap > 0 && cap*recordLength+(cap+7)/8 > avail {
		cap--
	}
	return cap
}
