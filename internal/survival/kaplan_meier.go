// Package survival implements the censored Kaplan-Meier product-limit
// estimator and its mean-covariate variant for a single stratum.
package survival

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"vpcstats/domain/core"
	"vpcstats/domain/vpc"
)

// Observation is one subject's terminal record: the event (or censoring) time
// and whether an event occurred there.
type Observation struct {
	Time  float64
	Event bool
}

// Options control a single estimation.
type Options struct {
	// Band requests a Greenwood confidence band. The interval must be
	// symmetric around 0.5.
	Band *vpc.Interval
	// Reverse reports 1 - survival, applied uniformly to value and bounds.
	Reverse bool
}

// Estimate computes the Kaplan-Meier survival curve for one stratum.
//
// Observations are sorted by time; at each distinct event time t with d
// events out of n subjects still at risk, survival is multiplied by
// (n - d) / n. All events at the same time are applied as one simultaneous
// step, with censoring at that time still counted in the risk set. Censored
// observations reduce the risk set from the next distinct time onward and
// never cause a drop. Points are emitted at event times only; the implicit
// value before the first point is 1 (0 in reverse mode).
func Estimate(obs []Observation, opts Options) ([]vpc.CurvePoint, error) {
	var z float64
	if opts.Band != nil {
		if !opts.Band.Symmetric() {
			return nil, core.ErrAsymmetricCI
		}
		z = distuv.Normal{Mu: 0, Sigma: 1}.Quantile(opts.Band.Upper)
	}

	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var points []vpc.CurvePoint
	surv := 1.0
	greenwood := 0.0
	atRisk := len(sorted)

	for i := 0; i < len(sorted); {
		t := sorted[i].Time
		events, leaving := 0, 0
		for i < len(sorted) && sorted[i].Time == t {
			if sorted[i].Event {
				events++
			}
			leaving++
			i++
		}
		if events > 0 {
			n, d := float64(atRisk), float64(events)
			surv *= (n - d) / n
			if n > d {
				greenwood += d / (n * (n - d))
			}
			p := vpc.CurvePoint{Time: t, Value: surv}
			if opts.Band != nil {
				se := surv * math.Sqrt(greenwood)
				p.Lower = clamp01(surv - z*se)
				p.Upper = clamp01(surv + z*se)
			}
			points = append(points, p)
		}
		atRisk -= leaving
	}

	if opts.Reverse {
		for i := range points {
			p := points[i]
			points[i].Value = 1 - p.Value
			if opts.Band != nil {
				points[i].Lower = 1 - p.Upper
				points[i].Upper = 1 - p.Lower
			}
		}
	}
	return points, nil
}

// ValueAt resamples a curve at time t by last-observation-carried-forward:
// the value of the most recent point at or before t, or start before the
// first point. Survival curves are right-continuous step functions, so a
// point exactly at an event time takes the post-step value. Confidence
// bounds are deliberately not carried.
func ValueAt(points []vpc.CurvePoint, t, start float64) float64 {
	idx := sort.Search(len(points), func(i int) bool { return points[i].Time > t })
	if idx == 0 {
		return start
	}
	return points[idx-1].Value
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
