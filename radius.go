package reduct

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EstimateRadii computes the class-purity radius of every point: the
// distance to its nearest opposite-class point, minus epsilon. The radius
// is the size of the largest open ball around the point that is free of
// opposite-class points, shrunk by the epsilon safety margin.
//
// A radius goes negative when epsilon exceeds the nearest-opposite
// distance. Such a point's open ball contains nothing (strict comparisons
// against a negative radius never hold), so it absorbs no neighbors; it can
// still be absorbed by others. Returns ErrDegenerateGeometry if some point
// has no opposite-class point at all.
func EstimateRadii(oracle DistanceOracle, epsilon float64) ([]float64, error) {
	n := oracle.NumPoints()
	radii := make([]float64, n)
	for i := 0; i < n; i++ {
		j, d := oracle.NearestOpposite(i)
		if j < 0 {
			return nil, fmt.Errorf("reduct: point %d has no opposite-class point: %w", i, ErrDegenerateGeometry)
		}
		radii[i] = d - epsilon
	}
	return radii, nil
}

// QuantileThreshold returns the radius cutoff below which points are
// retained. quantile must be in (0, 1]; 1 keeps every point.
//
// Under QuantileGlobal the cutoff is the empirical quantile of all radii
// pooled together. Under QuantilePerClassMax the quantile is taken within
// each class separately and the largest per-class cutoff wins, so a class
// of broadly smaller radii is not wiped out by a class of larger ones.
// labels is only consulted for QuantilePerClassMax.
func QuantileThreshold(radii []float64, labels []int, quantile float64, policy QuantilePolicy) float64 {
	if policy == QuantilePerClassMax {
		byClass := make(map[int][]float64)
		for i, r := range radii {
			byClass[labels[i]] = append(byClass[labels[i]], r)
		}
		cutoffs := make([]float64, 0, len(byClass))
		for _, rs := range byClass {
			sort.Float64s(rs)
			cutoffs = append(cutoffs, stat.Quantile(quantile, stat.Empirical, rs, nil))
		}
		return floats.Max(cutoffs)
	}

	sorted := make([]float64, len(radii))
	copy(sorted, radii)
	sort.Float64s(sorted)
	return stat.Quantile(quantile, stat.Empirical, sorted, nil)
}

// retainIndices returns the indices whose radius does not exceed threshold,
// in ascending order.
func retainIndices(radii []float64, threshold float64) []int {
	var kept []int
	for i, r := range radii {
		if r <= threshold {
			kept = append(kept, i)
		}
	}
	return kept
}
