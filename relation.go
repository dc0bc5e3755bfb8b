package reduct

// BuildRelations computes, for every point, the same-class points lying
// strictly inside its open ball: relations[i] lists the indices j != i with
// the same label as i and Distance(i, j) < radii[i], in ascending order.
// Points with a non-positive radius get an empty row.
func BuildRelations(oracle DistanceOracle, radii []float64) [][]int {
	n := oracle.NumPoints()
	relations := make([][]int, n)
	for i := 0; i < n; i++ {
		relations[i] = oracle.SameClassWithin(i, radii[i])
	}
	return relations
}
