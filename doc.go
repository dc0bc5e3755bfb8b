// Package reduct estimates the structural complexity of a labeled point set
// by collapsing mutually redundant same-class points into representative
// units.
//
// Around every point it measures the largest open ball that stays inside the
// point's own class (the distance to the nearest opposite-class point, minus
// a safety margin epsilon). Points whose ball radius falls in the lower
// quantile of all radii are retained; any retained point lying strictly
// inside another retained point's ball is absorbed into it. Absorption is
// repeated until no ball contains another live point. The number of
// surviving units is a sample-size-like measure of how much of the data is
// genuinely distinct.
//
// Basic usage:
//
//	cfg := reduct.DefaultConfig()
//	cfg.Quantile = 0.9
//	result, err := reduct.Reduce(data, labels, cfg)
//	// result.ReducedSize is the number of surviving representative units
//	// result.Representatives[u] is the original index of unit u's representative
//	// result.Members[u] lists the original indices absorbed into unit u
//
// For precomputed distance matrices:
//
//	result, err := reduct.ReducePrecomputed(distMatrix, n, labels, cfg)
//
// # Algorithm selection
//
// By default (Algorithm: "auto"), Reduce picks a distance-query strategy
// based on the metric and dimensionality. For standard metrics on
// low-dimensional data it builds one KD-tree per class, which answers the
// nearest-opposite-class and in-ball queries without materializing the full
// pairwise matrix and uses O(n) memory instead of O(n²). Set
// Config.Algorithm to force a strategy:
//
//	cfg.Algorithm = reduct.AlgorithmBrute     // full distance matrix
//	cfg.Algorithm = reduct.AlgorithmKDTree    // per-class KD-trees
//	cfg.Algorithm = reduct.AlgorithmBallTree  // per-class ball trees
package reduct
