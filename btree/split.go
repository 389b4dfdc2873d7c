package btree

import (
	"fmt"

	"ridgedb/common"
)

// split moves the upper half of left's entries into a freshly allocated
// right sibling and returns the new page number together with the
// separator key. Leaf and internal nodes split identically under the
// n==n layout: the moved entries, each already carrying its own key,
// simply become right's entries (copy-up), so the returned separator —
// right's first key — is present in right exactly as any other of its
// keys, consistent with keys[i] always being the minimum key of the
// subtree rooted at children[i].
func (t *Tree) split(leftNum int64, left *Node) (rightNum int64, separator []byte, err error) {
	common.Assert(left.IsOverflow(), "split called on a node with %d keys, order %d", left.KeyCount(), left.order)

	raw, err := t.pool.NewPage(t.fileHandle)
	if err != nil {
		return 0, nil, fmt.Errorf("btree: allocating split sibling: %w", err)
	}
	right := AsNode(raw, t.keyLength, t.order)
	right.Init(left.IsLeaf())
	rightNum = raw.GetPageId().PageNum

	n := left.KeyCount()
	mid := n / 2
	for i := mid; i < n; i++ {
		right.setKeyAt(i-mid, left.KeyAt(i))
		right.setValueAt(i-mid, left.ValueAt(i))
	}
	right.setKeyCount(n - mid)
	left.setKeyCount(mid)
	right.SetParent(t.pageID(left.Parent()))

	if left.IsLeaf() {
		oldNext := left.NextLeaf()
		right.SetNextLeaf(t.pageID(oldNext))
		right.SetPrevLeaf(t.pageID(leftNum))
		left.SetNextLeaf(t.pageID(rightNum))

		if oldNext >= 0 {
			nextNode, ferr := t.fetchNode(oldNext)
			if ferr != nil {
				t.pool.Unpin(raw.GetPageId(), true)
				return 0, nil, ferr
			}
			nextNode.SetPrevLeaf(t.pageID(rightNum))
			t.unpin(oldNext, true)
		} else {
			hdr, herr := t.fetchHeader()
			if herr != nil {
				t.pool.Unpin(raw.GetPageId(), true)
				return 0, nil, herr
			}
			hdr.SetLastLeaf(rightNum)
			t.unpinHeader(true)
		}
	} else {
		for i := 0; i < right.KeyCount(); i++ {
			child, cerr := t.fetchNode(right.ChildAt(i))
			if cerr != nil {
				t.pool.Unpin(raw.GetPageId(), true)
				return 0, nil, cerr
			}
			child.SetParent(t.pageID(rightNum))
			t.unpin(right.ChildAt(i), true)
		}
	}

	separator = append([]byte{}, right.KeyAt(0)...)
	t.pool.Unpin(raw.GetPageId(), true)
	return rightNum, separator, nil
}
