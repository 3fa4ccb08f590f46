// Package binning partitions the time axis into the shared grid every
// replicate and the observed curve are compared on.
package binning

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"vpcstats/domain/vpc"
)

// Bin is one right-closed interval (Lo, Hi] of the grid. A point on a
// boundary belongs to the lower bin; 0 belongs to the first bin.
type Bin struct {
	Index int
	Lo    float64
	Hi    float64
	Mid   float64
}

// Grid is the full bin partition of [0, max(time)]. It is computed once per
// run and shared read-only by every replicate.
type Grid struct {
	Breaks []float64
	Bins   []Bin
}

// Breakpoints derives the grid breakpoints for a policy over the given time
// series. The result is non-decreasing, starts at 0 and ends at or beyond the
// series maximum. BinPolicyMirror must be resolved by the caller (it is the
// same computation over the other dataset's times).
func Breakpoints(policy vpc.BinPolicy, times []float64, nBins int, explicit []float64) ([]float64, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("no time values to bin")
	}
	distinct := distinctSorted(times)
	max := distinct[len(distinct)-1]

	// Degenerate series collapse to a single bin spanning [0, max].
	if len(distinct) < 2 {
		return []float64{0, max}, nil
	}

	switch policy {
	case vpc.BinPolicyNone:
		return bound(distinct, max), nil

	case vpc.BinPolicyExplicit:
		if len(explicit) == 0 {
			return nil, fmt.Errorf("explicit binning requested without breakpoints")
		}
		bp := make([]float64, 0, len(explicit))
		for _, v := range explicit {
			if v >= 0 {
				bp = append(bp, v)
			}
		}
		sort.Float64s(bp)
		return bound(dedup(bp), max), nil

	case vpc.BinPolicyByCount:
		if nBins < 1 {
			return nil, fmt.Errorf("by-count binning requires at least 1 bin, got %d", nBins)
		}
		bp := make([]float64, 0, nBins+1)
		for i := 1; i < nBins; i++ {
			edge, err := stats.Percentile(times, float64(i)*100/float64(nBins))
			if err != nil {
				return nil, fmt.Errorf("percentile edge %d: %w", i, err)
			}
			bp = append(bp, edge)
		}
		sort.Float64s(bp)
		return bound(dedup(bp), max), nil

	case vpc.BinPolicyByDensity:
		if nBins < 1 {
			return nil, fmt.Errorf("by-density binning requires at least 1 bin, got %d", nBins)
		}
		bp := make([]float64, 0, nBins+1)
		for i := 0; i <= nBins; i++ {
			bp = append(bp, max*float64(i)/float64(nBins))
		}
		return bound(dedup(bp), max), nil

	case vpc.BinPolicyMirror:
		return nil, fmt.Errorf("mirror binning must be resolved to the other dataset's grid before binning")

	default:
		return nil, fmt.Errorf("unknown bin policy %q", policy)
	}
}

// NewGrid builds the bin partition from breakpoints.
func NewGrid(breaks []float64) (*Grid, error) {
	if len(breaks) < 2 {
		return nil, fmt.Errorf("need at least 2 breakpoints, got %d", len(breaks))
	}
	for i := 1; i < len(breaks); i++ {
		if breaks[i] < breaks[i-1] {
			return nil, fmt.Errorf("breakpoints must be non-decreasing at index %d", i)
		}
	}
	g := &Grid{Breaks: breaks}
	for i := 0; i+1 < len(breaks); i++ {
		lo, hi := breaks[i], breaks[i+1]
		g.Bins = append(g.Bins, Bin{Index: i, Lo: lo, Hi: hi, Mid: (lo + hi) / 2})
	}
	return g, nil
}

// locate returns the index of the bin containing t. Membership is
// right-closed: t equal to a shared boundary lands in the lower bin. Times
// below 0 map to the first bin, times beyond the grid to the last. The
// aggregation pipeline samples each bin at its own upper bound, so membership
// there holds by construction; this is the reference definition it must agree
// with.
func (g *Grid) locate(t float64) int {
	if t <= g.Bins[0].Hi {
		return 0
	}
	idx := sort.Search(len(g.Bins), func(i int) bool {
		return g.Bins[i].Hi >= t
	})
	if idx >= len(g.Bins) {
		return len(g.Bins) - 1
	}
	return idx
}

func distinctSorted(times []float64) []float64 {
	sorted := make([]float64, len(times))
	copy(sorted, times)
	sort.Float64s(sorted)
	return dedup(sorted)
}

func dedup(sorted []float64) []float64 {
	out := sorted[:0]
	for _, v := range sorted {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// bound anchors a sorted breakpoint vector at 0 and extends it to max.
func bound(bp []float64, max float64) []float64 {
	if len(bp) == 0 || bp[0] > 0 {
		bp = append([]float64{0}, bp...)
	}
	if bp[len(bp)-1] < max {
		bp = append(bp, max)
	}
	return bp
}
