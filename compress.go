package reduct

// CompressSpace merges points along the in-ball relation until no live
// point's ball contains another live point.
//
// Points are scanned in ascending index order. A live point absorbs every
// live neighbor in its relation row; absorbed points go inactive and bring
// their whole unit along. Positions and radii never change, so a point's
// live neighborhood only shrinks as others go inactive; the scan repeats
// until a full pass performs no merge, which is the fixpoint.
//
// Returns the surviving representative indices in ascending order and, for
// each survivor, the sorted member indices of its unit (the representative
// included). Panics if a relation row references an index outside
// [0, len(relations)).
func CompressSpace(relations [][]int) (survivors []int, members [][]int) {
	n := len(relations)
	uf := NewUnionFind(n)
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	for {
		merged := false
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for _, nb := range relations[i] {
				if nb < 0 || nb >= n {
					panic("reduct: relation row references an index outside the working set")
				}
				if nb == i || !active[nb] {
					continue
				}
				uf.Absorb(i, nb)
				active[nb] = false
				merged = true
			}
		}
		if !merged {
			break
		}
	}

	// A point is active exactly when it was never absorbed, so the active
	// points are the union-find roots.
	uf.Flatten()
	pos := make(map[int]int, n)
	for i := 0; i < n; i++ {
		if active[i] {
			pos[i] = len(survivors)
			survivors = append(survivors, i)
			members = append(members, nil)
		}
	}
	for i := 0; i < n; i++ {
		root := uf.Find(i)
		members[pos[root]] = append(members[pos[root]], i)
	}
	return survivors, members
}
