package btree

import (
	"fmt"

	"ridgedb/disk/pages"
)

// Delete removes the exact key if present, returning false if it was not
// found. It merges or redistributes underflowing nodes up the path as
// needed and collapses the root if it is left with a single child.
func (t *Tree) Delete(key []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.descend(key)
	if err != nil {
		return false, err
	}
	leafNum := path[len(path)-1]
	leaf, err := t.fetchNode(leafNum)
	if err != nil {
		return false, err
	}

	idx, found := t.findKey(leaf, key)
	if !found {
		t.unpin(leafNum, false)
		return false, nil
	}
	leaf.DeleteAt(idx)
	if idx == 0 && leaf.KeyCount() > 0 {
		if err := t.maintainParent(leafNum, leaf); err != nil {
			t.unpin(leafNum, true)
			return false, err
		}
	}

	if len(path) == 1 || !leaf.IsUnderflow() {
		t.unpin(leafNum, true)
		return true, nil
	}
	t.unpin(leafNum, true)

	return true, t.fixUnderflow(path, len(path)-1)
}

// fixUnderflow restores occupancy at path[level] (known to be underflowing
// or already merged-into by a lower level) by redistributing from or
// merging with a sibling, propagating upward as needed.
func (t *Tree) fixUnderflow(path []int64, level int) error {
	if level == 0 {
		return t.collapseRootIfNeeded()
	}

	nodeNum := path[level]
	parentNum := path[level-1]
	parent, err := t.fetchNode(parentNum)
	if err != nil {
		return err
	}
	idxAtParent := t.childIndex(parent, nodeNum)

	var leftNum, rightNum int64 = -1, -1
	if idxAtParent > 0 {
		leftNum = parent.ChildAt(idxAtParent - 1)
	}
	if idxAtParent+1 < parent.KeyCount() {
		rightNum = parent.ChildAt(idxAtParent + 1)
	}

	node, err := t.fetchNode(nodeNum)
	if err != nil {
		t.unpin(parentNum, false)
		return err
	}

	minKeys := (t.order + 1) / 2

	if rightNum >= 0 {
		right, rerr := t.fetchNode(rightNum)
		if rerr != nil {
			t.unpin(parentNum, false)
			t.unpin(nodeNum, false)
			return rerr
		}
		if right.KeyCount() > minKeys {
			t.redistributeFromRight(node, right, parent, idxAtParent)
			t.unpin(nodeNum, true)
			t.unpin(rightNum, true)
			t.unpin(parentNum, true)
			return nil
		}
		// merge node <- right
		t.mergeNodes(node, right, parent, idxAtParent+1)
		t.unpin(nodeNum, true)
		t.unpin(rightNum, true)
		if parent.IsUnderflow() {
			t.unpin(parentNum, true)
			return t.fixUnderflow(path, level-1)
		}
		t.unpin(parentNum, true)
		return nil
	}

	if leftNum >= 0 {
		left, lerr := t.fetchNode(leftNum)
		if lerr != nil {
			t.unpin(parentNum, false)
			t.unpin(nodeNum, false)
			return lerr
		}
		if left.KeyCount() > minKeys {
			t.redistributeFromLeft(left, node, parent, idxAtParent)
			t.unpin(leftNum, true)
			t.unpin(nodeNum, true)
			t.unpin(parentNum, true)
			return nil
		}
		// merge left <- node
		t.mergeNodes(left, node, parent, idxAtParent)
		t.unpin(leftNum, true)
		t.unpin(nodeNum, true)
		if parent.IsUnderflow() {
			t.unpin(parentNum, true)
			return t.fixUnderflow(path, level-1)
		}
		t.unpin(parentNum, true)
		return nil
	}

	// no siblings: only possible for the root's only child, nothing to fix
	t.unpin(nodeNum, true)
	t.unpin(parentNum, false)
	return nil
}

// redistributeFromRight moves right's first entry into node (node is the
// underflowing node, right is its right sibling) and fixes the parent's
// recorded copy of right's own minimum key — the single slot affected,
// since right's rank in parent is never 0 here (node holds that rank)
// so the fix never needs to propagate further up.
func (t *Tree) redistributeFromRight(node, right, parent *Node, idxAtParent int) {
	node.InsertAt(node.KeyCount(), right.KeyAt(0), right.ValueAt(0))
	if !node.IsLeaf() {
		t.reparent(node.ChildAt(node.KeyCount()-1), node)
	}
	right.DeleteAt(0)
	parent.setKeyAt(idxAtParent+1, right.KeyAt(0))
}

// redistributeFromLeft moves left's last entry into node (node is the
// underflowing node, left is its left sibling) and fixes the parent's
// recorded copy of node's own minimum key.
func (t *Tree) redistributeFromLeft(left, node, parent *Node, idxAtParent int) {
	last := left.KeyCount() - 1
	node.InsertAt(0, left.KeyAt(last), left.ValueAt(last))
	if !node.IsLeaf() {
		t.reparent(node.ChildAt(0), node)
	}
	left.DeleteAt(last)
	parent.setKeyAt(idxAtParent, node.KeyAt(0))
}

// mergeNodes absorbs right's entries into left — each entry already
// carries its own key under the n==n layout, so no separator needs to be
// borrowed from parent — and removes right's slot from parent at
// parentRank. left keeps leftNum; right is left allocated but logically
// dead (the caller must not reuse its page number).
func (t *Tree) mergeNodes(left, right, parent *Node, parentRank int) {
	base := left.KeyCount()
	for i := 0; i < right.KeyCount(); i++ {
		left.InsertAt(base+i, right.KeyAt(i), right.ValueAt(i))
		if !left.IsLeaf() {
			t.reparent(left.ChildAt(base+i), left)
		}
	}
	if left.IsLeaf() {
		leftNum := left.GetPageId().PageNum
		nextOfRight := right.NextLeaf()
		left.SetNextLeaf(t.pageID(nextOfRight))
		if nextOfRight >= 0 {
			nextNode, err := t.fetchNode(nextOfRight)
			if err == nil {
				nextNode.SetPrevLeaf(t.pageID(leftNum))
				t.unpin(nextOfRight, true)
			}
		} else {
			hdr, err := t.fetchHeader()
			if err == nil {
				hdr.SetLastLeaf(leftNum)
				t.unpinHeader(true)
			}
		}
	}
	parent.DeleteAt(parentRank)
}

func (t *Tree) reparent(childNum int64, newParent *Node) {
	newParentNum := newParent.GetPageId().PageNum
	child, err := t.fetchNode(childNum)
	if err != nil {
		panic(fmt.Sprintf("btree: reparenting %d: %v", childNum, err))
	}
	child.SetParent(t.pageID(newParentNum))
	t.unpin(childNum, true)
}

// collapseRootIfNeeded shrinks the tree's height when the root is an
// internal node left with a single child (the root is exempt from the
// minimum-occupancy invariant, so a root with one child is the terminal
// case of repeated merges rather than an underflow to fix in place).
func (t *Tree) collapseRootIfNeeded() error {
	root, err := t.fetchNode(t.rootNum)
	if err != nil {
		return err
	}
	if root.IsLeaf() || root.KeyCount() > 1 {
		t.unpin(t.rootNum, false)
		return nil
	}

	newRootNum := root.ChildAt(0)
	t.unpin(t.rootNum, false)

	newRoot, err := t.fetchNode(newRootNum)
	if err != nil {
		return err
	}
	newRoot.SetParent(pages.InvalidPageID)
	t.unpin(newRootNum, true)

	hdr, err := t.fetchHeader()
	if err != nil {
		return err
	}
	hdr.SetRoot(newRootNum)
	t.unpinHeader(true)
	t.rootNum = newRootNum
	return nil
}
