package reduct

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SweepPoint is one entry of a prefix sweep: the reduction sizes for the
// first Size points of the dataset.
type SweepPoint struct {
	Size     int // prefix length
	Retained int // points kept by the quantile pruning
	Reduced  int // surviving representative units
}

// SweepPrefixes runs the reduction on growing prefixes of the dataset,
// producing the (size, retained, reduced) curve that sample-size estimators
// fit against. sizes must be strictly increasing and within [1, len(data)].
//
// Prefixes are evaluated concurrently, at most runtime.NumCPU() at a time;
// each evaluation still honors cfg.Workers internally, so heavy Workers
// settings multiply. Canceling ctx stops evaluations that have not started
// (a running prefix finishes first). On any error, including cancellation,
// no partial results are returned.
func SweepPrefixes(ctx context.Context, data [][]float64, labels []int, sizes []int, cfg Config) ([]SweepPoint, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("reduct: no prefix sizes: %w", ErrInvalidInput)
	}
	if len(labels) != len(data) {
		return nil, fmt.Errorf("reduct: %d points but %d labels: %w", len(data), len(labels), ErrInvalidInput)
	}
	prev := 0
	for _, m := range sizes {
		if m <= prev || m > len(data) {
			return nil, fmt.Errorf("reduct: prefix sizes must be strictly increasing and within [1, %d], got %v: %w", len(data), sizes, ErrInvalidInput)
		}
		prev = m
	}

	points := make([]SweepPoint, len(sizes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for si, m := range sizes {
		si, m := si, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Reduce(data[:m], labels[:m], cfg)
			if err != nil {
				return fmt.Errorf("reduct: prefix %d: %w", m, err)
			}
			points[si] = SweepPoint{Size: m, Retained: res.RetainedSize, Reduced: res.ReducedSize}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
