// Package testkit generates synthetic time-to-event trials for pipeline
// tests: exponential event times with uniform right-censoring, optional
// covariate groups, and per-replicate regeneration.
package testkit

import (
	"math"
	"math/rand"
	"strconv"

	"vpcstats/domain/table"
)

// TrialConfig describes one synthetic trial design.
type TrialConfig struct {
	Subjects   int
	Replicates int     // ignored for observed data
	EventRate  float64 // hazard of the exponential event-time distribution
	CensorTime float64 // administrative censoring horizon
	Groups     []string
	Seed       int64
}

// TrialKit deterministically generates datasets for one trial design.
type TrialKit struct {
	cfg TrialConfig
	rng *rand.Rand
}

// NewTrialKit creates a generator. The seed makes every dataset reproducible.
func NewTrialKit(cfg TrialConfig) *TrialKit {
	if cfg.EventRate <= 0 {
		cfg.EventRate = 0.1
	}
	if cfg.CensorTime <= 0 {
		cfg.CensorTime = 20
	}
	return &TrialKit{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Observed generates one observed dataset: one terminal row per subject.
func (k *TrialKit) Observed() *table.Table {
	ids, times, dv, groups := k.cohort()
	cols := []table.Column{
		{Name: "ID", Labels: ids},
		{Name: "TIME", Numeric: times},
		{Name: "DV", Numeric: dv},
	}
	if groups != nil {
		cols = append(cols, table.Column{Name: "GRP", Labels: groups})
	}
	return table.MustNew(cols...)
}

// Simulated generates a simulated dataset with the configured number of
// replicates, each a fresh re-run of the same design, tagged by a SIM column.
func (k *TrialKit) Simulated() *table.Table {
	n := k.cfg.Replicates
	if n < 1 {
		n = 1
	}
	var ids, groups []string
	var times, dv, sim []float64
	hasGroups := len(k.cfg.Groups) > 0

	for rep := 1; rep <= n; rep++ {
		rids, rtimes, rdv, rgroups := k.cohort()
		ids = append(ids, rids...)
		times = append(times, rtimes...)
		dv = append(dv, rdv...)
		if hasGroups {
			groups = append(groups, rgroups...)
		}
		for range rids {
			sim = append(sim, float64(rep))
		}
	}

	cols := []table.Column{
		{Name: "ID", Labels: ids},
		{Name: "TIME", Numeric: times},
		{Name: "DV", Numeric: dv},
		{Name: "SIM", Numeric: sim},
	}
	if hasGroups {
		cols = append(cols, table.Column{Name: "GRP", Labels: groups})
	}
	return table.MustNew(cols...)
}

// cohort draws one cohort of subjects: exponential event times truncated by
// the censoring horizon.
func (k *TrialKit) cohort() (ids []string, times, dv []float64, groups []string) {
	for s := 1; s <= k.cfg.Subjects; s++ {
		t := -math.Log(1-k.rng.Float64()) / k.cfg.EventRate
		event := 1.0
		if t > k.cfg.CensorTime {
			t = k.cfg.CensorTime
			event = 0
		}
		ids = append(ids, strconv.Itoa(s))
		times = append(times, t)
		dv = append(dv, event)
		if len(k.cfg.Groups) > 0 {
			groups = append(groups, k.cfg.Groups[s%len(k.cfg.Groups)])
		}
	}
	return ids, times, dv, groups
}
