package proptest

import "math"

// choiceTree records the prefixes of concluded attempts. Strategies are
// deterministic given their choices, so a prefix that concluded once always
// concludes the same way; a node is exhausted once every child is.
type choiceTree struct {
	root *treeNode
}

type treeNode struct {
	max       uint64
	children  map[uint64]*treeNode
	done      uint64
	exhausted bool
}

const steerScanLimit = 64

func newChoiceTree() *choiceTree {
	return &choiceTree{root: &treeNode{}}
}

// exhausted reports whether every possible choice sequence has concluded.
func (t *choiceTree) exhausted() bool {
	return t.root.exhausted
}

// record marks the path of a concluded attempt as explored. Attempts cut
// short by a replay overrun must not be recorded.
func (t *choiceTree) record(seq ChoiceSequence) {
	path := make([]*treeNode, 0, len(seq)+1)
	node := t.root
	path = append(path, node)
	for _, c := range seq {
		if node.exhausted {
			return
		}
		node.max = c.Max
		if node.children == nil {
			node.children = make(map[uint64]*treeNode)
		}
		child := node.children[c.Value]
		if child == nil {
			child = &treeNode{}
			node.children[c.Value] = child
		}
		node = child
		path = append(path, node)
	}
	if node.exhausted {
		return
	}
	node.exhausted = true
	for i := len(path) - 2; i >= 0; i-- {
		parent := path[i]
		parent.done++
		if parent.max == math.MaxUint64 || parent.done < parent.max+1 {
			return
		}
		parent.exhausted = true
	}
}

// steer returns v unless the child at v is exhausted, in which case it picks
// another child that still has unexplored descendants.
func (n *treeNode) steer(r Randomness, v, max uint64) uint64 {
	if c := n.children[v]; c == nil || !c.exhausted {
		return v
	}
	if max < steerScanLimit {
		open := make([]uint64, 0, max+1)
		for i := uint64(0); i <= max; i++ {
			if c := n.children[i]; c == nil || !c.exhausted {
				open = append(open, i)
			}
		}
		if len(open) == 0 {
			return v
		}
		return open[r.Uint64n(uint64(len(open)))]
	}
	for i := 0; i < 8; i++ {
		w := uniformDraw(r, max)
		if c := n.children[w]; c == nil || !c.exhausted {
			return w
		}
	}
	for w := v; ; {
		if w == max {
			w = 0
		} else {
			w++
		}
		if w == v {
			return v
		}
		if c := n.children[w]; c == nil || !c.exhausted {
			return w
		}
	}
}
