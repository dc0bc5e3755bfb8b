package reduct

import (
	"fmt"
	"log"
	"math"
	"runtime"
)

// Algorithm selects the distance-query strategy.
type Algorithm string

const (
	AlgorithmAuto     Algorithm = "auto"
	AlgorithmBrute    Algorithm = "brute"
	AlgorithmKDTree   Algorithm = "kdtree"
	AlgorithmBallTree Algorithm = "balltree"
)

// QuantilePolicy selects how the radius pruning cutoff is computed.
type QuantilePolicy string

const (
	// QuantileGlobal pools every radius and takes one empirical quantile
	// over the whole set.
	QuantileGlobal QuantilePolicy = "global"

	// QuantilePerClassMax takes the quantile within each class separately
	// and uses the largest per-class cutoff, so a class of broadly smaller
	// radii is not wiped out by a class of larger ones.
	QuantilePerClassMax QuantilePolicy = "per_class_max"
)

// Config controls the reduction behavior.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Quantile prunes points whose class-purity radius exceeds this
	// empirical quantile of the radii. Must be in (0, 1]; 1 retains every
	// point. Default: 1.0.
	Quantile float64

	// QuantilePolicy selects how the pruning cutoff is computed:
	// "global" (one cutoff over all radii pooled) or "per_class_max"
	// (per-class cutoffs, largest wins). Default: "global".
	QuantilePolicy QuantilePolicy

	// Epsilon shrinks every class-purity radius by a fixed safety margin,
	// keeping balls strictly clear of the opposite class. A point whose
	// nearest-opposite distance is below Epsilon gets a negative radius
	// and absorbs no neighbors (see Result.NegativeRadii). Must be >= 0
	// and finite. Default: 0.0.
	Epsilon float64

	// Metric is the distance function used to measure point similarity.
	// Built-in: EuclideanMetric, ManhattanMetric, CosineMetric,
	// ChebyshevMetric, MinkowskiMetric. Use DistanceFunc to wrap a custom
	// function. Default: EuclideanMetric.
	Metric DistanceMetric

	// Algorithm selects the distance-query strategy.
	// "auto" picks based on metric and dimensionality.
	// "brute" uses the full distance matrix (O(n²) memory).
	// "kdtree"/"balltree" build one spatial tree per class (O(n) memory).
	// Default: "auto".
	Algorithm Algorithm

	// LeafSize controls the maximum number of points in a spatial tree
	// leaf node. Only used with tree-based algorithms. Default: 40.
	LeafSize int

	// Workers controls the number of goroutines for the parallelizable
	// stages (pairwise distances, radius estimation, relation building).
	// 0 means use runtime.NumCPU(). Default: 0 (auto).
	Workers int
}

// Result contains the output of a reduction.
type Result struct {
	// OriginalSize is the number of input points.
	OriginalSize int

	// RetainedSize is the number of points kept by the quantile pruning.
	RetainedSize int

	// ReducedSize is the number of representative units surviving
	// compression. This is the structural complexity estimate.
	ReducedSize int

	// Representatives[u] is the original index of unit u's representative
	// point. Units are ordered by ascending representative index.
	Representatives []int

	// UnitLabels[u] is the class label shared by every member of unit u.
	UnitLabels []int

	// Members[u] lists the original indices of the points absorbed into
	// unit u, the representative included, in ascending order.
	Members [][]int

	// Retained lists the original indices of the points kept by the
	// quantile pruning, in ascending order.
	Retained []int

	// Radii[k] is the class-purity radius of point Retained[k].
	Radii []float64

	// NegativeRadii counts retained points whose radius is negative:
	// Epsilon exceeded their nearest-opposite distance, so their balls
	// are empty and they absorb nothing.
	NegativeRadii int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Quantile:       1.0,
		QuantilePolicy: QuantileGlobal,
		Metric:         EuclideanMetric{},
		Algorithm:      AlgorithmAuto,
		LeafSize:       40,
		// Workers stays 0: use runtime.NumCPU().
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Quantile <= 0 || cfg.Quantile > 1 || math.IsNaN(cfg.Quantile) {
		return fmt.Errorf("reduct: Quantile must be in (0, 1], got %v: %w", cfg.Quantile, ErrInvalidInput)
	}
	if cfg.Epsilon < 0 || math.IsNaN(cfg.Epsilon) || math.IsInf(cfg.Epsilon, 0) {
		return fmt.Errorf("reduct: Epsilon must be >= 0 and finite, got %v: %w", cfg.Epsilon, ErrInvalidInput)
	}
	switch cfg.QuantilePolicy {
	case QuantileGlobal, QuantilePerClassMax:
		// valid
	default:
		return fmt.Errorf("reduct: invalid QuantilePolicy %q: %w", cfg.QuantilePolicy, ErrInvalidInput)
	}
	switch cfg.Algorithm {
	case AlgorithmAuto, AlgorithmBrute, AlgorithmKDTree, AlgorithmBallTree:
		// valid
	default:
		return fmt.Errorf("reduct: invalid Algorithm %q: %w", cfg.Algorithm, ErrInvalidInput)
	}
	if cfg.LeafSize < 1 {
		return fmt.Errorf("reduct: LeafSize must be >= 1, got %d: %w", cfg.LeafSize, ErrInvalidInput)
	}
	return nil
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Quantile == 0 {
		cfg.Quantile = 1.0
	}
	if cfg.QuantilePolicy == "" {
		cfg.QuantilePolicy = QuantileGlobal
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmAuto
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 40
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateData checks the shape of the dataset: at least one point, matching
// label count, rectangular rows, finite coordinates, and at least two
// distinct classes.
func validateData(data [][]float64, labels []int) (n, dims int, err error) {
	n = len(data)
	if n == 0 {
		return 0, 0, fmt.Errorf("reduct: empty dataset: %w", ErrInvalidInput)
	}
	if len(labels) != n {
		return 0, 0, fmt.Errorf("reduct: %d points but %d labels: %w", n, len(labels), ErrInvalidInput)
	}
	dims = len(data[0])
	if dims == 0 {
		return 0, 0, fmt.Errorf("reduct: point 0 has no coordinates: %w", ErrInvalidInput)
	}
	for i, row := range data {
		if len(row) != dims {
			return 0, 0, fmt.Errorf("reduct: point %d has %d coordinates, want %d: %w", i, len(row), dims, ErrInvalidInput)
		}
		for d, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, fmt.Errorf("reduct: point %d coordinate %d is not finite: %w", i, d, ErrInvalidInput)
			}
		}
	}
	if k := len(distinctLabels(labels)); k < 2 {
		return 0, 0, fmt.Errorf("reduct: need at least 2 distinct classes, got %d: %w", k, ErrInvalidInput)
	}
	return n, dims, nil
}

// Reduce estimates the structural complexity of a labeled point set.
// Each element of data is a point (float64 slice); all points must have the
// same dimensionality, and labels[i] is the class of data[i]. The pipeline
// measures every point's class-purity radius, prunes by the configured
// quantile, then repeatedly absorbs retained points lying strictly inside
// another retained point's ball. Result.ReducedSize is the surviving unit
// count.
func Reduce(data [][]float64, labels []int, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	n, dims, err := validateData(data, labels)
	if err != nil {
		return nil, err
	}

	flatData := make([]float64, n*dims)
	for i, row := range data {
		copy(flatData[i*dims:], row)
	}

	algo, err := selectAlgorithm(cfg, dims)
	if err != nil {
		return nil, err
	}

	oracle := newOracle(flatData, n, dims, labels, cfg, algo)
	radii, err := EstimateRadiiParallel(oracle, cfg.Epsilon, cfg.Workers)
	if err != nil {
		return nil, err
	}

	threshold := QuantileThreshold(radii, labels, cfg.Quantile, cfg.QuantilePolicy)
	kept := retainIndices(radii, threshold)

	// Re-index the retained points into a compact 0..k-1 space.
	k := len(kept)
	keptData := make([]float64, k*dims)
	keptLabels := make([]int, k)
	keptRadii := make([]float64, k)
	for ki, i := range kept {
		copy(keptData[ki*dims:(ki+1)*dims], flatData[i*dims:(i+1)*dims])
		keptLabels[ki] = labels[i]
		keptRadii[ki] = radii[i]
	}

	keptOracle := newOracle(keptData, k, dims, keptLabels, cfg, algo)
	return assembleResult(keptOracle, kept, keptLabels, keptRadii, n, cfg), nil
}

// ReducePrecomputed performs the reduction on a precomputed distance matrix.
// distMatrix is a flat []float64 of length n*n in row-major order, where
// distMatrix[i*n+j] is the distance between points i and j. The Config.Metric
// and Config.Algorithm fields are ignored since distances are already
// computed.
func ReducePrecomputed(distMatrix []float64, n int, labels []int, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	if len(distMatrix) != n*n {
		return nil, fmt.Errorf("reduct: distMatrix length %d does not match n*n = %d (n=%d): %w", len(distMatrix), n*n, n, ErrInvalidInput)
	}
	if n == 0 {
		return nil, fmt.Errorf("reduct: empty dataset: %w", ErrInvalidInput)
	}
	if len(labels) != n {
		return nil, fmt.Errorf("reduct: %d points but %d labels: %w", n, len(labels), ErrInvalidInput)
	}
	if k := len(distinctLabels(labels)); k < 2 {
		return nil, fmt.Errorf("reduct: need at least 2 distinct classes, got %d: %w", k, ErrInvalidInput)
	}

	oracle := NewMatrixOracle(distMatrix, n, labels)
	radii, err := EstimateRadiiParallel(oracle, cfg.Epsilon, cfg.Workers)
	if err != nil {
		return nil, err
	}

	threshold := QuantileThreshold(radii, labels, cfg.Quantile, cfg.QuantilePolicy)
	kept := retainIndices(radii, threshold)

	// Extract the retained submatrix in the compact 0..k-1 space.
	k := len(kept)
	keptDist := make([]float64, k*k)
	keptLabels := make([]int, k)
	for a, i := range kept {
		keptLabels[a] = labels[i]
		for b, j := range kept {
			keptDist[a*k+b] = distMatrix[i*n+j]
		}
	}
	keptRadii := make([]float64, k)
	for ki, i := range kept {
		keptRadii[ki] = radii[i]
	}

	keptOracle := NewMatrixOracle(keptDist, k, keptLabels)
	return assembleResult(keptOracle, kept, keptLabels, keptRadii, n, cfg), nil
}

// newOracle builds the distance oracle for the resolved algorithm: a full
// matrix for brute force, per-class spatial trees otherwise.
func newOracle(data []float64, n, dims int, labels []int, cfg Config, algo Algorithm) DistanceOracle {
	if algo == AlgorithmBrute {
		dm := ComputePairwiseDistancesParallel(data, n, dims, cfg.Metric, cfg.Workers)
		return NewMatrixOracle(dm, n, labels)
	}
	return NewTreeOracle(data, n, dims, labels, cfg.Metric, algo, cfg.LeafSize)
}

// assembleResult runs relation building and compression over the retained
// points and maps the surviving units back to original indices.
func assembleResult(oracle DistanceOracle, kept []int, keptLabels []int, keptRadii []float64, originalSize int, cfg Config) *Result {
	negative := 0
	for _, r := range keptRadii {
		if r < 0 {
			negative++
		}
	}
	if negative > 0 {
		log.Printf("reduct: Epsilon %g exceeds the nearest-opposite distance of %d retained points; their balls are empty", cfg.Epsilon, negative)
	}

	relations := BuildRelationsParallel(oracle, keptRadii, cfg.Workers)
	survivors, unitMembers := CompressSpace(relations)

	reps := make([]int, len(survivors))
	unitLabels := make([]int, len(survivors))
	members := make([][]int, len(survivors))
	for u, s := range survivors {
		reps[u] = kept[s]
		unitLabels[u] = keptLabels[s]
		ms := make([]int, len(unitMembers[u]))
		for mi, m := range unitMembers[u] {
			ms[mi] = kept[m]
		}
		members[u] = ms
	}

	return &Result{
		OriginalSize:    originalSize,
		RetainedSize:    len(kept),
		ReducedSize:     len(survivors),
		Representatives: reps,
		UnitLabels:      unitLabels,
		Members:         members,
		Retained:        kept,
		Radii:           keptRadii,
		NegativeRadii:   negative,
	}
}
