package btree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"ridgedb/buffer"
	"ridgedb/dberr"
	"ridgedb/disk/pages"

	"github.com/sirupsen/logrus"
)

// Comparator orders two fixed-length keys, each already the
// concat(cols)‖tiebreaker form used throughout the tree.
type Comparator func(a, b []byte) int

// Tree is a concurrent B+-tree over fixed-length keys stored in their own
// index file. All structural operations serialize on a tree-wide mutex
// rather than crabbing latches node-by-node, the way
// thetarby-helindb/btree.BTree's rootEntryLock brackets a traversal but
// without per-node read/write coupling.
type Tree struct {
	mu sync.Mutex

	pool       buffer.Pool
	fileHandle int32
	keyLength  int
	order      int
	cmp        Comparator
	rootNum    int64

	log *logrus.Entry
}

// Order computes the maximum key count a node can hold given pageSize and
// keyLength, reserving room for the header and a value area sized 1:1
// with the key area (every node, leaf or internal, pairs each key with
// exactly one value), grounded on heap.Capacity's iterative-shrink
// approach.
func Order(pageSize, keyLength int) int {
	avail := pageSize - pages.HeaderSize - nodeHeaderLen
	order := avail / (keyLength + ValueSize)
	for order > 1 && order*keyLength+order*ValueSize > avail {
		order--
	}
	return order
}

// Create allocates a fresh index file: a header page followed by an empty
// root leaf.
func Create(pool buffer.Pool, fileHandle int32, keyLength int, cmp Comparator) (*Tree, error) {
	hdrRaw, err := pool.NewPage(fileHandle)
	if err != nil {
		return nil, fmt.Errorf("btree: allocating header page: %w", err)
	}
	if hdrRaw.GetPageId().PageNum != headerPageNum {
		return nil, fmt.Errorf("btree: expected header at page 0, got %d", hdrRaw.GetPageId().PageNum)
	}

	rootRaw, err := pool.NewPage(fileHandle)
	if err != nil {
		pool.Unpin(hdrRaw.GetPageId(), false)
		return nil, fmt.Errorf("btree: allocating root page: %w", err)
	}
	order := Order(pool.PageSize(), keyLength)
	root := AsNode(rootRaw, keyLength, order)
	root.Init(true)
	rootNum := rootRaw.GetPageId().PageNum

	hdr := &fileHeader{RawPage: hdrRaw}
	hdr.SetRoot(rootNum)
	hdr.SetFirstLeaf(rootNum)
	hdr.SetLastLeaf(rootNum)

	pool.Unpin(hdrRaw.GetPageId(), true)
	pool.Unpin(rootRaw.GetPageId(), true)

	return &Tree{
		pool:       pool,
		fileHandle: fileHandle,
		keyLength:  keyLength,
		order:      order,
		cmp:        cmp,
		rootNum:    rootNum,
		log:        logrus.WithField("component", "btree"),
	}, nil
}

// Open reopens an existing index file, reading the root page number from
// its header page.
func Open(pool buffer.Pool, fileHandle int32, keyLength int, cmp Comparator) (*Tree, error) {
	t := &Tree{
		pool:       pool,
		fileHandle: fileHandle,
		keyLength:  keyLength,
		order:      Order(pool.PageSize(), keyLength),
		cmp:        cmp,
		log:        logrus.WithField("component", "btree"),
	}
	hdr, err := t.fetchHeader()
	if err != nil {
		return nil, err
	}
	t.rootNum = hdr.Root()
	t.unpinHeader(false)
	return t, nil
}

func (t *Tree) RootID() pages.PageID {
	return pages.PageID{FileHandle: t.fileHandle, PageNum: t.rootNum}
}

func (t *Tree) pageID(num int64) pages.PageID {
	return pages.PageID{FileHandle: t.fileHandle, PageNum: num}
}

func (t *Tree) fetchNode(num int64) (*Node, error) {
	raw, err := t.pool.Fetch(t.pageID(num))
	if err != nil {
		return nil, err
	}
	return AsNode(raw, t.keyLength, t.order), nil
}

func (t *Tree) unpin(num int64, dirty bool) {
	t.pool.Unpin(t.pageID(num), dirty)
}

// findKey returns the first index i such that cmp(key, node.KeyAt(i)) <= 0,
// and whether that entry's key equals key exactly.
func (t *Tree) findKey(n *Node, key []byte) (index int, found bool) {
	count := n.KeyCount()
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if t.cmp(n.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < count && bytes.Equal(n.KeyAt(lo), key) {
		return lo, true
	}
	return lo, false
}

// childIndex finds the slot in internal node parent whose child pointer
// equals childNum.
func (t *Tree) childIndex(parent *Node, childNum int64) int {
	for i := 0; i < parent.KeyCount(); i++ {
		if parent.ChildAt(i) == childNum {
			return i
		}
	}
	panic(fmt.Sprintf("btree: child %d not found in parent", childNum))
}

// routeIndex picks the child of an internal node that must hold key,
// given that key[i] is the minimum key of the subtree rooted at
// children[i]: the route is the last i with key[i] <= key, or 0 if key
// is smaller than every key present (the leftmost subtree, which has no
// smaller sibling to hold it).
func (t *Tree) routeIndex(n *Node, key []byte) int {
	idx, found := t.findKey(n, key)
	if found {
		return idx
	}
	if idx == 0 {
		return 0
	}
	return idx - 1
}

// descend walks from the root to the leaf that would contain key,
// returning the page numbers visited in order (root first, leaf last).
func (t *Tree) descend(key []byte) ([]int64, error) {
	path := []int64{t.rootNum}
	cur := t.rootNum
	for {
		n, err := t.fetchNode(cur)
		if err != nil {
			return nil, err
		}
		if n.IsLeaf() {
			t.unpin(cur, false)
			return path, nil
		}
		child := n.ChildAt(t.routeIndex(n, key))
		t.unpin(cur, false)
		path = append(path, child)
		cur = child
	}
}

// maintainParent walks from nodeNum upward, fixing each ancestor's
// recorded copy of nodeNum's minimum key, stopping as soon as an
// ancestor's copy already matches — the "keys[i] is the minimum key of
// the subtree rooted at children[i]" invariant, which an insert or
// delete at position 0 of a leaf can otherwise leave stale all the way
// up to the root.
func (t *Tree) maintainParent(nodeNum int64, node *Node) error {
	childNum := nodeNum
	key0 := append([]byte{}, node.KeyAt(0)...)
	parentNum := node.Parent()
	for parentNum >= 0 {
		parent, err := t.fetchNode(parentNum)
		if err != nil {
			return err
		}
		rank := t.childIndex(parent, childNum)
		if bytes.Equal(parent.KeyAt(rank), key0) {
			t.unpin(parentNum, false)
			return nil
		}
		parent.setKeyAt(rank, key0)
		key0 = append([]byte{}, parent.KeyAt(0)...)
		next := parent.Parent()
		t.unpin(parentNum, true)
		childNum = parentNum
		parentNum = next
	}
	return nil
}

// Get returns the value stored for an exact key match.
func (t *Tree) Get(key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	leafNum := path[len(path)-1]
	leaf, err := t.fetchNode(leafNum)
	if err != nil {
		return nil, err
	}
	defer t.unpin(leafNum, false)

	idx, found := t.findKey(leaf, key)
	if !found {
		return nil, dberr.ErrIndexEntryNotFound
	}
	out := make([]byte, ValueSize)
	copy(out, leaf.ValueAt(idx))
	return out, nil
}

// Insert adds key->value, splitting nodes up the path as needed. Inserting
// a key that already exists overwrites its value in place.
func (t *Tree) Insert(key []byte, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.descend(key)
	if err != nil {
		return err
	}
	leafNum := path[len(path)-1]
	leaf, err := t.fetchNode(leafNum)
	if err != nil {
		return err
	}

	idx, found := t.findKey(leaf, key)
	if found {
		leaf.setValueAt(idx, value)
		t.unpin(leafNum, true)
		return nil
	}
	leaf.InsertAt(idx, key, value)
	if idx == 0 {
		if err := t.maintainParent(leafNum, leaf); err != nil {
			t.unpin(leafNum, true)
			return err
		}
	}
	if !leaf.IsOverflow() {
		t.unpin(leafNum, true)
		return nil
	}

	rightNum, sep, err := t.split(leafNum, leaf)
	t.unpin(leafNum, true)
	if err != nil {
		return err
	}

	return t.bubbleSplit(path, len(path)-1, rightNum, sep)
}

// bubbleSplit propagates a new (separator, rightChild) pair up from
// path[childLevel] into its ancestors, splitting them in turn, and
// creates a new root if the existing root overflows. The new pair is
// inserted immediately after the already-split left child's own slot —
// the left child's key is untouched, since its minimum key never changed
// by shedding its upper half.
func (t *Tree) bubbleSplit(path []int64, childLevel int, rightChild int64, sep []byte) error {
	for level := childLevel - 1; level >= 0; level-- {
		parentNum := path[level]
		parent, err := t.fetchNode(parentNum)
		if err != nil {
			return err
		}
		leftChildNum := path[level+1]
		idx := t.childIndex(parent, leftChildNum)
		parent.InsertAt(idx+1, sep, encodeChild(rightChild))

		rightNode, err := t.fetchNode(rightChild)
		if err != nil {
			t.unpin(parentNum, true)
			return err
		}
		rightNode.SetParent(t.pageID(parentNum))
		t.unpin(rightChild, true)

		if !parent.IsOverflow() {
			t.unpin(parentNum, true)
			return nil
		}

		newRight, newSep, err := t.split(parentNum, parent)
		t.unpin(parentNum, true)
		if err != nil {
			return err
		}
		rightChild, sep = newRight, newSep
	}

	// The root itself split; build a fresh root above the old one.
	return t.newRoot(path[0], rightChild, sep)
}

func (t *Tree) newRoot(oldRootNum, rightChild int64, sep []byte) error {
	old, err := t.fetchNode(oldRootNum)
	if err != nil {
		return err
	}
	oldKey0 := append([]byte{}, old.KeyAt(0)...)

	raw, err := t.pool.NewPage(t.fileHandle)
	if err != nil {
		t.unpin(oldRootNum, false)
		return fmt.Errorf("btree: allocating new root: %w", err)
	}
	root := AsNode(raw, t.keyLength, t.order)
	root.Init(false)
	root.InsertAt(0, oldKey0, encodeChild(oldRootNum))
	root.InsertAt(1, sep, encodeChild(rightChild))
	rootNum := raw.GetPageId().PageNum
	t.pool.Unpin(raw.GetPageId(), true)

	old.SetParent(t.pageID(rootNum))
	t.unpin(oldRootNum, true)

	right, err := t.fetchNode(rightChild)
	if err != nil {
		return err
	}
	right.SetParent(t.pageID(rootNum))
	t.unpin(rightChild, true)

	hdr, err := t.fetchHeader()
	if err != nil {
		return err
	}
	hdr.SetRoot(rootNum)
	t.unpinHeader(true)
	t.rootNum = rootNum
	return nil
}

func encodeChild(pageNum int64) []byte {
	b := make([]byte, ValueSize)
	binary.BigEndian.PutUint64(b, uint64(pageNum))
	return b
}
