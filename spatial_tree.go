package reduct

// NodeData describes a single node in a spatial tree.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
	Radius           float64 // ball tree radius; 0 for KD-tree
}

// SpatialTree is the read interface for KD-trees and Ball trees, used by the
// tree-backed distance oracle for nearest-opposite-class and in-ball queries.
type SpatialTree interface {
	// QueryKNN finds the k nearest neighbors for each row in queryData.
	// queryData is flat row-major with queryRows rows.
	// Returns per-query neighbor indices and distances (both sorted by distance).
	QueryKNN(queryData []float64, queryRows, k int) (indices [][]int, distances [][]float64)

	// QueryRadius returns the indices of all points strictly closer to
	// query than radius, in ascending index order. A non-positive radius
	// matches nothing.
	QueryRadius(query []float64, radius float64) []int

	// NumPoints returns the number of points in the tree.
	NumPoints() int

	// NumFeatures returns the dimensionality of each point.
	NumFeatures() int
}
