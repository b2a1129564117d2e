// Package region indexes the lexical scopes of a trace as spans of event
// indices. Scope spans are strictly nested (a scope exits before anything
// that opened earlier), so the index stores them as a containment hierarchy
// over an RB-tree of disjoint intervals and answers "which scopes cover
// event i" queries.
package region

import "github.com/sirkon/rbtree"

// node stores a [start,end] event-index span for one scope and, if needed,
// a nested RB-tree for child spans fully contained in it.
type node struct {
	start int
	end   int

	id       int
	children *rbtree.Tree[*node]
}

// Cmp orders the RB-tree by "disjoint by position":
//   - -1 if this span ends before other starts
//   - 1 if this span starts after other ends
//   - 0 on any overlap (containment or equal boundaries).
//
// Scope spans never partially overlap, so 0 always means one span contains
// the other; InsertReturn hands back the overlapping node and the
// containment fix-up happens in attachInto.
func (n *node) Cmp(other *node) int {
	if n.end < other.start {
		return -1
	}
	if n.start > other.end {
		return 1
	}
	return 0
}

func contains(a, b *node) bool {
	return a.start <= b.start && a.end >= b.end
}

// attachInto inserts span s into tree t:
//   - no overlap: s becomes a sibling.
//   - s contains the overlapping node r: r is rewritten in place to carry
//     s's span and the old r re-attaches as its child, avoiding a tree
//     "replace" operation.
//   - r contains s: descend into r's children.
func attachInto(t *rbtree.Tree[*node], s *node) {
	r := t.InsertReturn(s)
	if r == s {
		return
	}

	if contains(s, r) {
		old := *r
		*r = *s
		if r.children == nil {
			r.children = rbtree.New[*node]()
		}
		attachInto(r.children, &old)
		return
	}

	if contains(r, s) {
		if r.children == nil {
			r.children = rbtree.New[*node]()
		}
		attachInto(r.children, s)
		return
	}

	panic("region: partially overlapping scope spans")
}

// Index is a containment hierarchy of scope spans.
type Index struct {
	tree *rbtree.Tree[*node]
}

// NewIndex returns an empty scope index.
func NewIndex() *Index {
	return &Index{tree: rbtree.New[*node]()}
}

// Add registers scope id covering event indices [start, end].
func (x *Index) Add(id, start, end int) {
	attachInto(x.tree, &node{start: start, end: end, id: id})
}

// ChainAt returns the scope IDs whose spans cover event index pos, from
// outermost to innermost. Empty when pos is outside every scope.
func (x *Index) ChainAt(pos int) []int {
	key := &node{start: pos, end: pos}
	var chain []int
	n := x.tree.Search(key)
	for n != nil {
		chain = append(chain, n.id)
		if n.children == nil {
			break
		}
		n = n.children.Search(key)
	}
	return chain
}
