package reduct

import "errors"

// Sentinel errors returned by Reduce, ReducePrecomputed and the pipeline
// stages. Wrap-aware callers should test with errors.Is; the concrete error
// values carry additional context about the offending input.
var (
	// ErrInvalidInput reports structurally malformed input: empty data,
	// mismatched data/label lengths, ragged rows, non-finite coordinates,
	// fewer than two distinct classes, or an out-of-range configuration.
	ErrInvalidInput = errors.New("reduct: invalid input")

	// ErrDegenerateGeometry reports that a nearest-opposite-class distance
	// is undefined because some point has no opposite-class point to
	// measure against.
	ErrDegenerateGeometry = errors.New("reduct: degenerate geometry")
)
