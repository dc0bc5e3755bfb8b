package reduct

// UnionFind implements a disjoint-set data structure with path compression.
// Units are merged with a directed Absorb so that the absorbing point's root
// always survives as the unit representative, independent of subtree sizes.
type UnionFind struct {
	parent []int
	size   []int
}

// NewUnionFind creates a UnionFind over elements 0..n-1, each in its own
// singleton set.
func NewUnionFind(n int) *UnionFind {
	if n < 0 {
		n = 0
	}
	parent := make([]int, n)
	size := make([]int, n)
	for i := range parent {
		parent[i] = -1 // -1 means "is a root"
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		size:   size,
	}
}

// Find returns the root of the set containing x, with path compression.
func (uf *UnionFind) Find(x int) int {
	// Walk to the root.
	root := x
	for uf.parent[root] != -1 {
		root = uf.parent[root]
	}
	// Path compression: point all nodes along the path directly to root.
	for uf.parent[x] != -1 {
		x, uf.parent[x] = uf.parent[x], root
	}
	return root
}

// Absorb merges the set containing victim into the set containing target.
// Unlike a size-balanced union, the surviving root is always target's root:
// the absorbing point stays the representative of the merged unit. Returns
// the surviving root. Absorbing a point into its own set is a no-op.
func (uf *UnionFind) Absorb(target, victim int) int {
	rootT := uf.Find(target)
	rootV := uf.Find(victim)
	if rootT == rootV {
		return rootT
	}

	uf.parent[rootV] = rootT
	uf.size[rootT] += uf.size[rootV]
	return rootT
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x int) int {
	return uf.size[uf.Find(x)]
}

// Flatten path-compresses every element so that each parent pointer leads
// directly to its root (or is -1 for roots).
func (uf *UnionFind) Flatten() {
	for i := range uf.parent {
		uf.Find(i)
	}
}
