// Package btree implements the ordered key -> value index: a concurrent
// multi-column, unique-by-tiebreaker B+-tree over keys of a fixed length
// set per tree, with range scans and split/merge/redistribute, grounded on
// thetarby-helindb/btree/nodes.go and btree/btree.go. Every operation
// holds one tree-wide mutex; the leaf descent (descend) takes no
// traversal-mode argument, and no latch crabbing is implemented.
package btree

import (
	"encoding/binary"

	"ridgedb/disk/pages"
)

// ValueSize is the width of every value slot: a leaf stores an 8-byte Rid
// (record-file page number + slot, both int32), an internal node stores
// an 8-byte child page number. The tree treats both as opaque bytes.
const ValueSize = 8

// node header layout, relative to RawPage.Content():
//
//	IsLeaf (1) | KeyCount (4) | ParentPageNum (8) | PrevLeaf (8) | NextLeaf (8)
const (
	hdrIsLeaf     = 0
	hdrKeyCount   = hdrIsLeaf + 1
	hdrParent     = hdrKeyCount + 4
	hdrPrevLeaf   = hdrParent + 8
	hdrNextLeaf   = hdrPrevLeaf + 8
	nodeHeaderLen = hdrNextLeaf + 8
)

// Node wraps a raw page with the fixed-slot key/value array layout shared
// by leaf and internal nodes: key count always equals value count. A leaf
// pairs each key with a record-id; an internal node pairs each key with
// the page number of the child whose minimum key it is.
type Node struct {
	*pages.RawPage
	keyLength int
	order     int
}

func AsNode(raw *pages.RawPage, keyLength, order int) *Node {
	return &Node{RawPage: raw, keyLength: keyLength, order: order}
}

func (n *Node) Init(isLeaf bool) {
	data := n.Content()
	if isLeaf {
		data[hdrIsLeaf] = 1
	} else {
		data[hdrIsLeaf] = 0
	}
	binary.BigEndian.PutUint32(data[hdrKeyCount:], 0)
	n.SetParent(pages.InvalidPageID)
	n.SetPrevLeaf(pages.InvalidPageID)
	n.SetNextLeaf(pages.InvalidPageID)
	n.SetDirty()
}

func (n *Node) IsLeaf() bool { return n.Content()[hdrIsLeaf] != 0 }

func (n *Node) KeyCount() int {
	return int(binary.BigEndian.Uint32(n.Content()[hdrKeyCount:]))
}

func (n *Node) setKeyCount(c int) {
	binary.BigEndian.PutUint32(n.Content()[hdrKeyCount:], uint32(c))
	n.SetDirty()
}

func (n *Node) Parent() int64 {
	return int64(binary.BigEndian.Uint64(n.Content()[hdrParent:]))
}

func (n *Node) SetParent(id pages.PageID) {
	binary.BigEndian.PutUint64(n.Content()[hdrParent:], uint64(id.PageNum))
	n.SetDirty()
}

func (n *Node) PrevLeaf() int64 {
	return int64(binary.BigEndian.Uint64(n.Content()[hdrPrevLeaf:]))
}

func (n *Node) SetPrevLeaf(id pages.PageID) {
	binary.BigEndian.PutUint64(n.Content()[hdrPrevLeaf:], uint64(id.PageNum))
	n.SetDirty()
}

func (n *Node) NextLeaf() int64 {
	return int64(binary.BigEndian.Uint64(n.Content()[hdrNextLeaf:]))
}

func (n *Node) SetNextLeaf(id pages.PageID) {
	binary.BigEndian.PutUint64(n.Content()[hdrNextLeaf:], uint64(id.PageNum))
	n.SetDirty()
}

func (n *Node) keysOffset() int { return nodeHeaderLen }

func (n *Node) valuesOffset() int { return nodeHeaderLen + n.order*n.keyLength }

func (n *Node) KeyAt(i int) []byte {
	off := n.keysOffset() + i*n.keyLength
	return n.Content()[off : off+n.keyLength]
}

func (n *Node) setKeyAt(i int, key []byte) {
	copy(n.KeyAt(i), key)
	n.SetDirty()
}

func (n *Node) ValueAt(i int) []byte {
	off := n.valuesOffset() + i*ValueSize
	return n.Content()[off : off+ValueSize]
}

func (n *Node) setValueAt(i int, value []byte) {
	copy(n.ValueAt(i), value)
	n.SetDirty()
}

// ChildAt returns the page number of the i-th child of an internal node.
// keys[i] is the minimum key of the subtree rooted at children[i]: an
// internal node's key count equals its child count, with no extra
// trailing child pointer.
func (n *Node) ChildAt(i int) int64 {
	return int64(binary.BigEndian.Uint64(n.ValueAt(i)))
}

func (n *Node) SetChildAt(i int, pageNum int64) {
	binary.BigEndian.PutUint64(n.ValueAt(i), uint64(pageNum))
	n.SetDirty()
}

// IsOverflow reports whether the node holds the maximum order entries and
// must split before another insert.
func (n *Node) IsOverflow() bool { return n.KeyCount() >= n.order }

// IsUnderflow reports whether the node holds fewer than ceil(order/2)
// keys, the minimum occupancy of a non-root node.
func (n *Node) IsUnderflow() bool { return n.KeyCount() < (n.order+1)/2 }

// InsertAt shifts the key/value pairs at and after i one slot to the
// right and writes key/value into the freed slot i. Leaf and internal
// nodes share this layout: an internal node's value at i is the page
// number of the child whose minimum key is key, so inserting a new
// (separator, child) pair is identical in shape to inserting a leaf's
// (key, rid) pair.
func (n *Node) InsertAt(i int, key []byte, value []byte) {
	kc := n.KeyCount()
	for j := kc; j > i; j-- {
		n.setKeyAt(j, n.KeyAt(j-1))
		n.setValueAt(j, n.ValueAt(j-1))
	}
	n.setKeyAt(i, key)
	n.setValueAt(i, value)
	n.setKeyCount(kc + 1)
}

// DeleteAt removes the key/value pair at i.
func (n *Node) DeleteAt(i int) {
	kc := n.KeyCount()
	for j := i; j < kc-1; j++ {
		n.setKeyAt(j, n.KeyAt(j+1))
		n.setValueAt(j, n.ValueAt(j+1))
	}
	n.setKeyCount(kc - 1)
}
