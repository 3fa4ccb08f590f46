// Package app wires the VPC pipeline stages together: validation, dataset
// preparation, grid resolution, and the concurrent observed and simulated
// estimation branches.
package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"vpcstats/domain/core"
	"vpcstats/domain/table"
	"vpcstats/domain/vpc"
	"vpcstats/internal"
	"vpcstats/internal/aggregate"
	"vpcstats/internal/binning"
	"vpcstats/internal/rtte"
	"vpcstats/internal/stratify"
	"vpcstats/internal/survival"
)

// censorCandidates are column names recognized as censoring flags when no
// censor column is configured.
var censorCandidates = []string{"CENS", "cens", "CENSOR", "censor"}

// VPCService computes visual predictive check statistics for time-to-event
// data. All configuration is resolved once at Compute; the pipeline itself is
// a chain of pure transformations over immutable tables.
type VPCService struct {
	log     *internal.Logger
	workers int
}

// NewVPCService creates the service. A nil logger falls back to the default.
func NewVPCService(log *internal.Logger) *VPCService {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &VPCService{log: log}
}

// SetDefaultWorkers sets the replicate fan-out bound used when a request does
// not specify one. Zero leaves the fan-out unbounded (GOMAXPROCS).
func (s *VPCService) SetDefaultWorkers(n int) {
	s.workers = n
}

// Compute validates the configuration, prepares both datasets, resolves the
// shared bin grid, and runs the observed estimation concurrently with the
// simulated replicate aggregation. Configuration and column errors abort
// before any numeric work; no partial result is ever returned.
func (s *VPCService) Compute(ctx context.Context, observed, simulated *table.Table, cfg vpc.Config) (*vpc.Result, error) {
	cfg = withDefaults(cfg)
	if cfg.Workers == 0 {
		cfg.Workers = s.workers
	}
	mapping := cfg.Profile.Resolve(cfg.Mapping)
	cfg.Mapping = mapping

	if err := validate(observed, simulated, mapping, cfg); err != nil {
		return nil, err
	}

	occCol := ""
	if cfg.RTTE.Enabled {
		occCol = rtte.OccurrenceColumn
	}
	stratVars := effectiveStratVars(cfg)

	var err error
	if observed != nil {
		observed, err = s.prepare(observed, "observed", mapping, cfg, false)
		if err != nil {
			return nil, err
		}
	}
	repCol := mapping.Replicate
	if simulated != nil {
		simulated, repCol, err = s.prepareSimulated(simulated, mapping, cfg)
		if err != nil {
			return nil, err
		}
	}

	grid, breaks, err := s.resolveGrid(observed, simulated, mapping.Time, cfg)
	if err != nil {
		return nil, err
	}

	result := &vpc.Result{
		RunID:       core.NewRunID(),
		Config:      cfg,
		Breakpoints: breaks,
		CreatedAt:   time.Now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)

	var curves []vpc.Curve
	var marks []vpc.CensorMark
	var observedStrata []string
	if observed != nil {
		g.Go(func() error {
			var err error
			curves, marks, observedStrata, err = s.estimateObserved(gctx, observed, mapping, stratVars, occCol, cfg)
			return err
		})
	}

	var binStats []vpc.BinStat
	replicates := 0
	if simulated != nil {
		g.Go(func() error {
			var err error
			binStats, replicates, err = aggregate.Aggregate(gctx, aggregate.Input{
				Table:         simulated,
				TimeCol:       mapping.Time,
				DVCol:         mapping.DV,
				RepCol:        repCol,
				StratVars:     stratVars,
				OccurrenceCol: occCol,
				KMMCCol:       cfg.KMMCColumn,
				Reverse:       cfg.ReverseProb,
				Grid:          grid,
				Quantiles:     cfg.Quantiles,
				Workers:       cfg.Workers,
				Log:           s.log,
			})
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Observed = curves
	result.Censored = marks
	result.Simulated = binStats
	result.Replicates = replicates
	result.Strata = mergeStrata(observedStrata, binStats)
	return result, nil
}

// withDefaults fills zero-valued fields from the documented defaults.
func withDefaults(cfg vpc.Config) vpc.Config {
	def := vpc.DefaultConfig()
	if cfg.BinPolicy == "" {
		cfg.BinPolicy = def.BinPolicy
	}
	if cfg.NBins == 0 {
		cfg.NBins = def.NBins
	}
	if cfg.Quantiles == (vpc.Quantiles{}) {
		cfg.Quantiles = def.Quantiles
	}
	if cfg.Profile == "" {
		cfg.Profile = def.Profile
	}
	if cfg.CoerceDV == nil {
		cfg.CoerceDV = def.CoerceDV
	}
	return cfg
}

// effectiveStratVars is the full stratification variable list: the user
// variables plus the color variable, which stratifies the same way.
func effectiveStratVars(cfg vpc.Config) []string {
	vars := append([]string(nil), cfg.StratVars...)
	if cfg.ColorVar != "" {
		vars = append(vars, cfg.ColorVar)
	}
	return vars
}

// validate fails fast on configuration and column errors, before any numeric
// work begins.
func validate(observed, simulated *table.Table, mapping vpc.ColumnMapping, cfg vpc.Config) error {
	if observed == nil && simulated == nil {
		return core.ErrNoDatasets
	}
	stratVars := effectiveStratVars(cfg)
	if cfg.RTTE.Enabled && len(stratVars) > 1 {
		return core.NewStratificationError(len(stratVars), 1, true)
	}
	if !cfg.RTTE.Enabled && len(stratVars) > 2 {
		return core.NewStratificationError(len(stratVars), 2, false)
	}
	if cfg.CI != nil && !cfg.CI.Symmetric() {
		return core.ErrAsymmetricCI
	}
	if !cfg.Quantiles.Ordered() {
		return core.NewConfigurationError("aggregation quantiles must be ascending probabilities")
	}

	check := func(tbl *table.Table, name string) error {
		required := []string{mapping.ID, mapping.Time, mapping.DV}
		required = append(required, stratVars...)
		if cfg.KMMCColumn != "" {
			required = append(required, cfg.KMMCColumn)
		}
		for _, col := range required {
			if !tbl.Has(col) {
				return core.NewColumnNotFoundError(name, col)
			}
		}
		return nil
	}
	if observed != nil {
		if err := check(observed, "observed"); err != nil {
			return err
		}
	}
	if simulated != nil {
		if err := check(simulated, "simulated"); err != nil {
			return err
		}
	}
	return nil
}

// prepare coerces the dependent variable and reduces the dataset to its
// estimation form (repeated time-to-event expansion or terminal-row
// de-duplication).
func (s *VPCService) prepare(tbl *table.Table, name string, mapping vpc.ColumnMapping, cfg vpc.Config, simulated bool) (*table.Table, error) {
	tbl, err := s.coerceDV(tbl, name, mapping, cfg)
	if err != nil {
		return nil, err
	}
	repCol := ""
	if simulated {
		repCol = mapping.Replicate
	}
	if cfg.RTTE.Enabled {
		return rtte.Preprocess(tbl, mapping.ID, mapping.Time, repCol, rtte.Options{
			Relative: cfg.RTTE.Relative,
			Events:   cfg.RTTE.Events,
		})
	}
	return rtte.ReduceToTerminal(tbl, mapping.ID, mapping.Time, mapping.DV, repCol)
}

// prepareSimulated additionally guarantees a replicate column, inferring one
// from subject-id restarts when the dataset carries none.
func (s *VPCService) prepareSimulated(tbl *table.Table, mapping vpc.ColumnMapping, cfg vpc.Config) (*table.Table, string, error) {
	repCol := mapping.Replicate
	if repCol == "" || !tbl.Has(repCol) {
		if repCol == "" {
			repCol = "SIM"
		}
		reps, err := rtte.InferReplicates(tbl, mapping.ID)
		if err != nil {
			return nil, "", err
		}
		tbl, err = tbl.WithNumeric(repCol, reps)
		if err != nil {
			return nil, "", err
		}
		s.log.Debug("simulated dataset: replicate column %q inferred from id restarts", repCol)
	}
	out, err := s.prepare(tbl, "simulated", mapping, cfg, true)
	return out, repCol, err
}

// coerceDV applies the documented dependent-variable heuristic: values above
// 1 equal to 2 are the censored code and become 0, other values above 1
// become 1. A recognized censoring column zeroes the dependent variable.
// Both conditions are recovered locally and surfaced through the logger,
// never fatal.
func (s *VPCService) coerceDV(tbl *table.Table, name string, mapping vpc.ColumnMapping, cfg vpc.Config) (*table.Table, error) {
	if cfg.CoerceDV != nil && !*cfg.CoerceDV {
		return tbl, nil
	}
	dv, err := tbl.Numeric(mapping.DV)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(dv))
	copy(out, dv)

	coerced := 0
	for i, v := range out {
		if v > 1 {
			if v == 2 {
				out[i] = 0
			} else {
				out[i] = 1
			}
			coerced++
		}
	}
	if coerced > 0 {
		s.log.Warn("%s dataset: %d dependent-variable values outside {0,1} coerced (2 treated as censored, other values as events)", name, coerced)
	}

	censorCol := mapping.Censor
	if censorCol == "" {
		for _, cand := range censorCandidates {
			if tbl.Has(cand) {
				censorCol = cand
				break
			}
		}
	}
	if censorCol != "" && tbl.Has(censorCol) {
		cens, err := tbl.Numeric(censorCol)
		if err != nil {
			return nil, err
		}
		zeroed := 0
		for i, c := range cens {
			if c != 0 && out[i] != 0 {
				out[i] = 0
				zeroed++
			}
		}
		if zeroed > 0 {
			s.log.Warn("%s dataset: censoring column %q zeroed %d dependent-variable values", name, censorCol, zeroed)
		}
	}
	return tbl.WithNumeric(mapping.DV, out)
}

// resolveGrid computes the shared bin grid once. By default the observed
// dataset's times drive the grid (the simulated times when no observed data
// exists); the mirror policy flips the source so each side can adopt the
// other's grid.
func (s *VPCService) resolveGrid(observed, simulated *table.Table, timeCol string, cfg vpc.Config) (*binning.Grid, []float64, error) {
	policy := cfg.BinPolicy
	source := observed
	if source == nil {
		source = simulated
	}
	if policy == vpc.BinPolicyMirror {
		policy = vpc.BinPolicyNone
		if simulated != nil && observed != nil {
			source = simulated
		}
	}
	times, err := source.Numeric(timeCol)
	if err != nil {
		return nil, nil, err
	}
	breaks, err := binning.Breakpoints(policy, times, cfg.NBins, cfg.Breakpoints)
	if err != nil {
		return nil, nil, err
	}
	grid, err := binning.NewGrid(breaks)
	if err != nil {
		return nil, nil, err
	}
	return grid, breaks, nil
}

// estimateObserved computes the per-stratum observed curve (with optional
// band) and the censoring markers placed on it.
func (s *VPCService) estimateObserved(ctx context.Context, tbl *table.Table, mapping vpc.ColumnMapping, stratVars []string, occCol string, cfg vpc.Config) ([]vpc.Curve, []vpc.CensorMark, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	labels, err := stratify.Labels(tbl, stratVars, occCol)
	if err != nil {
		return nil, nil, nil, err
	}
	times, err := tbl.Numeric(mapping.Time)
	if err != nil {
		return nil, nil, nil, err
	}
	dv, err := tbl.Numeric(mapping.DV)
	if err != nil {
		return nil, nil, nil, err
	}
	var covariate []float64
	if cfg.KMMCColumn != "" {
		covariate, err = tbl.Numeric(cfg.KMMCColumn)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	order, rows := stratify.Partition(labels)
	curves := make([]vpc.Curve, 0, len(order))
	var marks []vpc.CensorMark

	for _, stratum := range order {
		var points []vpc.CurvePoint
		start := 1.0
		if cfg.ReverseProb {
			start = 0.0
		}

		if covariate != nil {
			obs := make([]survival.CovObservation, 0, len(rows[stratum]))
			for _, r := range rows[stratum] {
				obs = append(obs, survival.CovObservation{Time: times[r], Event: dv[r] != 0, Value: covariate[r]})
			}
			points = survival.EstimateMeanCovariate(obs)
			if len(points) > 0 {
				start = points[0].Value
			}
		} else {
			obs := make([]survival.Observation, 0, len(rows[stratum]))
			for _, r := range rows[stratum] {
				obs = append(obs, survival.Observation{Time: times[r], Event: dv[r] != 0})
			}
			points, err = survival.Estimate(obs, survival.Options{Band: cfg.CI, Reverse: cfg.ReverseProb})
			if err != nil {
				return nil, nil, nil, err
			}
		}

		curves = append(curves, vpc.Curve{
			Stratum: stratum,
			Points:  points,
			HasBand: cfg.CI != nil && covariate == nil,
		})

		for _, r := range rows[stratum] {
			if dv[r] == 0 {
				marks = append(marks, vpc.CensorMark{
					Stratum: stratum,
					Time:    times[r],
					Value:   survival.ValueAt(points, times[r], start),
				})
			}
		}
	}
	return curves, marks, order, nil
}

// mergeStrata keeps the observed display order and appends any stratum that
// only appears in the simulated aggregate.
func mergeStrata(observed []string, binStats []vpc.BinStat) []string {
	out := make([]string, 0, len(observed))
	seen := make(map[string]bool, len(observed))
	for _, s := range observed {
		seen[s] = true
		out = append(out, s)
	}
	for _, bs := range binStats {
		if !seen[bs.Stratum] {
			seen[bs.Stratum] = true
			out = append(out, bs.Stratum)
		}
	}
	return out
}
