// Package aggregate runs the per-replicate estimation pipeline and reduces
// the resulting curves to cross-replicate quantile bands on the shared grid.
package aggregate

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"vpcstats/domain/table"
	"vpcstats/domain/vpc"
	"vpcstats/internal"
	"vpcstats/internal/binning"
	"vpcstats/internal/stratify"
	"vpcstats/internal/survival"
)

// Input is everything one aggregation needs. The grid is read-only and
// shared by all replicates; nothing else crosses replicate boundaries until
// the final reduce.
type Input struct {
	Table         *table.Table // simulated records, one terminal row per subject per replicate
	TimeCol       string
	DVCol         string
	RepCol        string
	StratVars     []string
	OccurrenceCol string // set in repeated time-to-event mode
	KMMCCol       string // set in mean-covariate mode
	Reverse       bool
	Grid          *binning.Grid
	Quantiles     vpc.Quantiles
	Workers       int
	Log           *internal.Logger
}

// replicateSample is one replicate's resampled curve: one value per
// (stratum, bin), taken at the bin's upper boundary by carry-forward.
type replicateSample struct {
	strata []string
	values map[string][]float64
}

// Aggregate maps the estimator over every replicate in parallel, resamples
// each curve onto the bin grid, and reduces to empirical quantiles per
// (stratum, bin). It returns the bin statistics and the replicate count.
func Aggregate(ctx context.Context, in Input) ([]vpc.BinStat, int, error) {
	repLabels, err := in.Table.Strings(in.RepCol)
	if err != nil {
		return nil, 0, err
	}
	repOrder, repRows := stratify.Partition(repLabels)

	samples := make([]*replicateSample, len(repOrder))

	g, gctx := errgroup.WithContext(ctx)
	if in.Workers > 0 {
		g.SetLimit(in.Workers)
	}
	for i, rep := range repOrder {
		i, rep := i, rep
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sub, err := in.Table.Select(repRows[rep])
			if err != nil {
				return err
			}
			sample, err := resampleReplicate(sub, in)
			if err != nil {
				return err
			}
			samples[i] = sample
			if in.Log != nil {
				in.Log.Debug("replicate %s: %d strata resampled", rep, len(sample.strata))
			}
			return nil
		})
	}
	// Barrier: the quantile reduce needs every replicate.
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	stats, err := reduceQuantiles(samples, in)
	if err != nil {
		return nil, 0, err
	}
	return stats, len(repOrder), nil
}

// resampleReplicate estimates one replicate's per-stratum curve and resamples
// it onto the grid by last-observation-carried-forward. Each bin is sampled
// once, at its upper boundary (which the right-closed bin owns); times before
// a stratum's first curve point carry the implicit starting value. Confidence
// bounds are never carried: they are not meaningful per replicate.
func resampleReplicate(sub *table.Table, in Input) (*replicateSample, error) {
	labels, err := stratify.Labels(sub, in.StratVars, in.OccurrenceCol)
	if err != nil {
		return nil, err
	}
	times, err := sub.Numeric(in.TimeCol)
	if err != nil {
		return nil, err
	}
	dv, err := sub.Numeric(in.DVCol)
	if err != nil {
		return nil, err
	}
	var covariate []float64
	if in.KMMCCol != "" {
		covariate, err = sub.Numeric(in.KMMCCol)
		if err != nil {
			return nil, err
		}
	}

	order, rows := stratify.Partition(labels)
	sample := &replicateSample{strata: order, values: make(map[string][]float64, len(order))}

	for _, stratum := range order {
		var points []vpc.CurvePoint
		start := 1.0
		if in.Reverse {
			start = 0.0
		}

		if covariate != nil {
			obs := make([]survival.CovObservation, 0, len(rows[stratum]))
			for _, r := range rows[stratum] {
				obs = append(obs, survival.CovObservation{Time: times[r], Event: dv[r] != 0, Value: covariate[r]})
			}
			points = survival.EstimateMeanCovariate(obs)
			if len(points) == 0 {
				continue
			}
			// The risk set is complete before the first terminal time, so the
			// covariate mean there equals the first point's value.
			start = points[0].Value
		} else {
			obs := make([]survival.Observation, 0, len(rows[stratum]))
			for _, r := range rows[stratum] {
				obs = append(obs, survival.Observation{Time: times[r], Event: dv[r] != 0})
			}
			points, err = survival.Estimate(obs, survival.Options{Reverse: in.Reverse})
			if err != nil {
				return nil, err
			}
		}

		binned := make([]float64, len(in.Grid.Bins))
		for b, bin := range in.Grid.Bins {
			binned[b] = survival.ValueAt(points, bin.Hi, start)
		}
		sample.values[stratum] = binned
	}
	return sample, nil
}

// reduceQuantiles is the single synchronization point: group per-bin values
// by (stratum, bin) across replicates and take empirical quantiles with
// linear interpolation between order statistics.
func reduceQuantiles(samples []*replicateSample, in Input) ([]vpc.BinStat, error) {
	var strata []string
	seen := make(map[string]bool)
	for _, s := range samples {
		for _, stratum := range s.strata {
			if !seen[stratum] {
				seen[stratum] = true
				strata = append(strata, stratum)
			}
		}
	}

	out := make([]vpc.BinStat, 0, len(strata)*len(in.Grid.Bins))
	for _, stratum := range strata {
		for b, bin := range in.Grid.Bins {
			vals := make([]float64, 0, len(samples))
			for _, s := range samples {
				if binned, ok := s.values[stratum]; ok {
					vals = append(vals, binned[b])
				}
			}
			if len(vals) == 0 {
				continue
			}
			sort.Float64s(vals)
			out = append(out, vpc.BinStat{
				Stratum:  stratum,
				BinIndex: bin.Index,
				BinMid:   bin.Mid,
				BinMin:   bin.Lo,
				BinMax:   bin.Hi,
				QLow:     stat.Quantile(in.Quantiles.Low, stat.LinInterp, vals, nil),
				QMedian:  stat.Quantile(in.Quantiles.Mid, stat.LinInterp, vals, nil),
				QHigh:    stat.Quantile(in.Quantiles.High, stat.LinInterp, vals, nil),
			})
		}
	}
	return out, nil
}
