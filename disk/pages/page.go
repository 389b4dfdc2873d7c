// Package pages defines the in-memory representation of a fixed-size disk
// page, grounded on thetarby-helindb/disk/pages.RawPage: a byte buffer
// plus pin count, dirty flag and a latch, with a page-LSN header field the
// teacher's variant does not expose directly but buffer.BufferPool reads
// through GetPageLSN/SetPageLSN to enforce writing a page's log records
// before the page itself.
package pages

import (
	"encoding/binary"
	"sync"
)

// lsnOffset is where the page-LSN header field lives inside every page's
// byte buffer, reserved ahead of type-specific content.
const lsnOffset = 0
const HeaderSize = 8

// RawPage is a pinned, mutable view of one page-sized byte buffer.
type RawPage struct {
	PageID   PageID
	PinCount int
	dirty    bool
	latch    sync.RWMutex
	data     []byte
}

func NewRawPage(id PageID, pageSize int) *RawPage {
	return &RawPage{
		PageID: id,
		data:   make([]byte, pageSize),
	}
}

func (p *RawPage) GetPageId() PageID { return p.PageID }

func (p *RawPage) GetWholeData() []byte { return p.data }

func (p *RawPage) Content() []byte { return p.data[HeaderSize:] }

func (p *RawPage) GetPageLSN() LSN {
	return LSN(binary.BigEndian.Uint64(p.data[lsnOffset:]))
}

func (p *RawPage) SetPageLSN(lsn LSN) {
	binary.BigEndian.PutUint64(p.data[lsnOffset:], uint64(lsn))
}

func (p *RawPage) IncrPinCount() { p.PinCount++ }
func (p *RawPage) DecrPinCount() { p.PinCount-- }
func (p *RawPage) GetPinCount() int { return p.PinCount }

func (p *RawPage) IsDirty() bool { return p.dirty }
func (p *RawPage) SetDirty()     { p.dirty = true }
func (p *RawPage) SetClean()     { p.dirty = false }

func (p *RawPage) Clear() {
	for i := range p.data {
		p.data[i] = 0
	}
	p.dirty = false
}

func (p *RawPage) WLatch()   { p.latch.Lock() }
func (p *RawPage) WUnlatch() { p.latch.Unlock() }
func (p *RawPage) RLatch()   { p.latch.RLock() }
func (p *RawPage) RUnLatch() { p.latch.RUnlock() }

func (p *RawPage) TryRLatch() bool { return p.latch.TryRLock() }
