package reduct

import (
	"math"
	"sort"
)

// DistanceOracle answers the distance queries the reduction pipeline needs
// over a fixed labeled point set: pairwise distances, nearest opposite-class
// distances, and same-class in-ball membership.
type DistanceOracle interface {
	// NumPoints returns the number of points the oracle was built over.
	NumPoints() int

	// Distance returns the distance between points i and j.
	Distance(i, j int) float64

	// NearestOpposite returns the index of and distance to the nearest
	// point whose label differs from point i's label. When no
	// opposite-class point exists it returns (-1, +Inf). If several
	// opposite-class points are equally near, which index is returned is
	// unspecified; the distance is the same either way.
	NearestOpposite(i int) (int, float64)

	// SameClassWithin returns the indices j != i that share point i's
	// label and satisfy Distance(i, j) < radius, in ascending order.
	// A non-positive radius matches nothing (the ball is open).
	SameClassWithin(i int, radius float64) []int
}

// matrixOracle answers oracle queries by scanning rows of a precomputed
// flat n*n distance matrix.
type matrixOracle struct {
	dist   []float64
	n      int
	labels []int
}

// NewMatrixOracle wraps a flat row-major n*n distance matrix and per-point
// labels as a DistanceOracle. The matrix is not copied; callers must not
// mutate it while the oracle is in use.
func NewMatrixOracle(dist []float64, n int, labels []int) DistanceOracle {
	return &matrixOracle{dist: dist, n: n, labels: labels}
}

func (o *matrixOracle) NumPoints() int { return o.n }

func (o *matrixOracle) Distance(i, j int) float64 { return o.dist[i*o.n+j] }

func (o *matrixOracle) NearestOpposite(i int) (int, float64) {
	row := o.dist[i*o.n : (i+1)*o.n]
	li := o.labels[i]
	bestIdx := -1
	best := math.Inf(1)
	for j := 0; j < o.n; j++ {
		if o.labels[j] == li {
			continue
		}
		if row[j] < best {
			best = row[j]
			bestIdx = j
		}
	}
	return bestIdx, best
}

func (o *matrixOracle) SameClassWithin(i int, radius float64) []int {
	if radius <= 0 {
		return nil
	}
	row := o.dist[i*o.n : (i+1)*o.n]
	li := o.labels[i]
	var out []int
	for j := 0; j < o.n; j++ {
		if j == i || o.labels[j] != li {
			continue
		}
		if row[j] < radius {
			out = append(out, j)
		}
	}
	return out
}

// treeOracle answers oracle queries with one spatial tree per class:
// nearest-opposite is the best 1-NN over every other class's tree, and
// same-class in-ball membership is a radius query on the point's own tree.
type treeOracle struct {
	data   []float64
	n      int
	dims   int
	labels []int
	metric DistanceMetric

	trees []SpatialTree // one per class, in ascending label order
	// toGlobal[s][k] = global index of tree s's point k
	toGlobal [][]int
	// slotOfPoint[i] = position of labels[i] in the ascending class order
	slotOfPoint []int
}

// NewTreeOracle builds per-class spatial trees over flat row-major data with
// n points of dimensionality dims. algorithm selects the tree type
// (AlgorithmBallTree builds ball trees, anything else KD-trees); leafSize is
// passed through to the tree builders.
func NewTreeOracle(data []float64, n, dims int, labels []int, metric DistanceMetric, algorithm Algorithm, leafSize int) DistanceOracle {
	// Stable class order: ascending distinct labels.
	classes := distinctLabels(labels)
	slot := make(map[int]int, len(classes))
	for s, c := range classes {
		slot[c] = s
	}

	toGlobal := make([][]int, len(classes))
	for i := 0; i < n; i++ {
		s := slot[labels[i]]
		toGlobal[s] = append(toGlobal[s], i)
	}

	slotOfPoint := make([]int, n)
	trees := make([]SpatialTree, len(classes))
	for s := range classes {
		members := toGlobal[s]
		coords := make([]float64, len(members)*dims)
		for k, g := range members {
			copy(coords[k*dims:(k+1)*dims], data[g*dims:(g+1)*dims])
			slotOfPoint[g] = s
		}
		if algorithm == AlgorithmBallTree {
			trees[s] = NewBallTree(coords, len(members), dims, metric, leafSize)
		} else {
			trees[s] = NewKDTree(coords, len(members), dims, metric, leafSize)
		}
	}

	return &treeOracle{
		data:        data,
		n:           n,
		dims:        dims,
		labels:      labels,
		metric:      metric,
		trees:       trees,
		toGlobal:    toGlobal,
		slotOfPoint: slotOfPoint,
	}
}

func (o *treeOracle) NumPoints() int { return o.n }

func (o *treeOracle) Distance(i, j int) float64 {
	return o.metric.Distance(o.data[i*o.dims:(i+1)*o.dims], o.data[j*o.dims:(j+1)*o.dims])
}

func (o *treeOracle) NearestOpposite(i int) (int, float64) {
	query := o.data[i*o.dims : (i+1)*o.dims]
	own := o.slotOfPoint[i]
	bestIdx := -1
	best := math.Inf(1)
	for s, tree := range o.trees {
		if s == own || tree.NumPoints() == 0 {
			continue
		}
		indices, distances := tree.QueryKNN(query, 1, 1)
		if len(indices[0]) == 0 {
			continue
		}
		if d := distances[0][0]; d < best {
			best = d
			bestIdx = o.toGlobal[s][indices[0][0]]
		}
	}
	return bestIdx, best
}

func (o *treeOracle) SameClassWithin(i int, radius float64) []int {
	s := o.slotOfPoint[i]
	locals := o.trees[s].QueryRadius(o.data[i*o.dims:(i+1)*o.dims], radius)
	out := make([]int, 0, len(locals))
	for _, li := range locals {
		g := o.toGlobal[s][li]
		if g == i {
			continue
		}
		out = append(out, g)
	}
	// toGlobal is ascending, so ascending locals map to ascending globals.
	return out
}

// distinctLabels returns the distinct values in labels in ascending order.
func distinctLabels(labels []int) []int {
	seen := make(map[int]struct{}, 8)
	var out []int
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}
