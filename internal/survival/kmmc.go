package survival

import (
	"sort"

	"github.com/montanaflynn/stats"

	"vpcstats/domain/vpc"
)

// CovObservation pairs a terminal record with a continuous covariate value.
type CovObservation struct {
	Time  float64
	Event bool
	Value float64
}

// EstimateMeanCovariate is the KMMC variant: it walks the same distinct-time
// skeleton as Estimate but reports, at each time step, the running mean of
// the covariate over the subjects still at risk instead of a survival
// probability. Bands and reverse mode do not apply.
func EstimateMeanCovariate(obs []CovObservation) []vpc.CurvePoint {
	sorted := make([]CovObservation, len(obs))
	copy(sorted, obs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var points []vpc.CurvePoint
	for i := 0; i < len(sorted); {
		t := sorted[i].Time

		// Risk set at t: everyone not yet past their terminal record.
		risk := make([]float64, 0, len(sorted)-i)
		for _, o := range sorted[i:] {
			risk = append(risk, o.Value)
		}
		mean, err := stats.Mean(risk)
		if err != nil {
			break
		}
		points = append(points, vpc.CurvePoint{Time: t, Value: mean})

		for i < len(sorted) && sorted[i].Time == t {
			i++
		}
	}
	return points
}
