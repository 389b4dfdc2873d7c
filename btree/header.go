package btree

import (
	"encoding/binary"

	"ridgedb/disk/pages"
)

// fileHeader is the first page of every index file: root/first-leaf/
// last-leaf page numbers.
const (
	fhRoot      = 0
	fhFirstLeaf = fhRoot + 8
	fhLastLeaf  = fhFirstLeaf + 8
)

const headerPageNum = 0

type fileHeader struct {
	*pages.RawPage
}

func (h *fileHeader) Root() int64      { return h.get(fhRoot) }
func (h *fileHeader) FirstLeaf() int64 { return h.get(fhFirstLeaf) }
func (h *fileHeader) LastLeaf() int64  { return h.get(fhLastLeaf) }

func (h *fileHeader) SetRoot(n int64)      { h.set(fhRoot, n) }
func (h *fileHeader) SetFirstLeaf(n int64) { h.set(fhFirstLeaf, n) }
func (h *fileHeader) SetLastLeaf(n int64)  { h.set(fhLastLeaf, n) }

func (h *fileHeader) get(off int) int64 {
	return int64(binary.BigEndian.Uint64(h.Content()[off:]))
}

func (h *fileHeader) set(off int, v int64) {
	binary.BigEndian.PutUint64(h.Content()[off:], uint64(v))
	h.SetDirty()
}

func (t *Tree) headerID() pages.PageID {
	return pages.PageID{FileHandle: t.fileHandle, PageNum: headerPageNum}
}

func (t *Tree) fetchHeader() (*fileHeader, error) {
	raw, err := t.pool.Fetch(t.headerID())
	if err != nil {
		return nil, err
	}
	return &fileHeader{RawPage: raw}, nil
}

func (t *Tree) unpinHeader(dirty bool) {
	t.pool.Unpin(t.headerID(), dirty)
}
