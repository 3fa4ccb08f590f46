// Package vpc defines the configuration surface and result model of the
// time-to-event visual predictive check engine.
package vpc

import (
	"math"
	"time"

	"vpcstats/domain/core"
)

// BinPolicy selects how the shared time grid is derived.
type BinPolicy string

const (
	// BinPolicyNone uses every distinct observed time as a breakpoint.
	BinPolicyNone BinPolicy = "none"
	// BinPolicyExplicit uses user-supplied breakpoints.
	BinPolicyExplicit BinPolicy = "explicit"
	// BinPolicyByCount splits into roughly equal-count groups ("data").
	BinPolicyByCount BinPolicy = "data"
	// BinPolicyByDensity splits into equal-width time intervals ("time").
	BinPolicyByDensity BinPolicy = "time"
	// BinPolicyMirror copies the grid implied by the other dataset's times, so
	// observed and simulated curves compare at identical bin edges.
	BinPolicyMirror BinPolicy = "mirror"
)

// MappingProfile is the closed set of column-naming conventions the engine
// accepts. Profiles resolve to a concrete ColumnMapping before the core runs;
// the core itself never branches on platform identity.
type MappingProfile string

const (
	MappingNONMEM   MappingProfile = "nonmem"
	MappingPhoenix  MappingProfile = "phoenix"
	MappingExplicit MappingProfile = "explicit"
)

// ColumnMapping names the columns the engine reads from both datasets.
type ColumnMapping struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	DV        string `json:"dv"`
	Censor    string `json:"censor,omitempty"`
	Replicate string `json:"replicate,omitempty"`
}

// Resolve returns the concrete mapping for a profile. Explicit fields on the
// override always win; the profile only fills blanks.
func (p MappingProfile) Resolve(override ColumnMapping) ColumnMapping {
	var base ColumnMapping
	switch p {
	case MappingPhoenix:
		base = ColumnMapping{ID: "Subject", Time: "IVAR", DV: "DV", Replicate: "Replicate"}
	case MappingNONMEM, MappingExplicit, "":
		base = ColumnMapping{ID: "ID", Time: "TIME", DV: "DV", Replicate: "SIM"}
	default:
		base = ColumnMapping{ID: "ID", Time: "TIME", DV: "DV", Replicate: "SIM"}
	}
	if override.ID != "" {
		base.ID = override.ID
	}
	if override.Time != "" {
		base.Time = override.Time
	}
	if override.DV != "" {
		base.DV = override.DV
	}
	if override.Censor != "" {
		base.Censor = override.Censor
	}
	if override.Replicate != "" {
		base.Replicate = override.Replicate
	}
	return base
}

// Interval is a two-sided confidence interval request, e.g. (0.05, 0.95).
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Symmetric reports whether the interval is symmetric around 0.5.
func (iv Interval) Symmetric() bool {
	return math.Abs(iv.Lower+iv.Upper-1) < 1e-9
}

// Quantiles are the cross-replicate percentiles reported per bin.
type Quantiles struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// Ordered reports whether the quantile probabilities are valid and ascending.
func (q Quantiles) Ordered() bool {
	return q.Low >= 0 && q.Low <= q.Mid && q.Mid <= q.High && q.High <= 1
}

// RTTEOptions control repeated time-to-event preprocessing.
type RTTEOptions struct {
	// Enabled switches the pipeline to repeated time-to-event form.
	Enabled bool `json:"enabled"`
	// Relative recalculates the time column to time-since-previous-event.
	Relative bool `json:"relative"`
	// Events restricts output to these occurrence indices (empty keeps all).
	Events []int `json:"events,omitempty"`
}

// Config is the full, explicit configuration of one VPC computation. It is
// resolved once at the entry point; defaults come from DefaultConfig, never
// from ambient lookup.
type Config struct {
	Profile MappingProfile `json:"profile"`
	Mapping ColumnMapping  `json:"mapping"`

	BinPolicy   BinPolicy `json:"bin_policy"`
	NBins       int       `json:"n_bins"`
	Breakpoints []float64 `json:"breakpoints,omitempty"`

	// StratVars holds up to two stratification variables. With RTTE enabled at
	// most one may be set, since the occurrence index already stratifies.
	StratVars []string `json:"strat_vars,omitempty"`

	// ColorVar is an optional color-stratification variable. It stratifies
	// like a StratVars entry (and counts against the same limits); its levels
	// end up in the stratum labels so a renderer can color curves by them.
	ColorVar string `json:"color_var,omitempty"`

	RTTE RTTEOptions `json:"rtte"`

	// CI requests a Greenwood confidence band on the observed curve. Nil means
	// no band. The interval must be symmetric around 0.5.
	CI *Interval `json:"ci,omitempty"`

	// ReverseProb reports 1 - survival (cumulative-incidence display).
	ReverseProb bool `json:"reverse_prob"`

	// KMMCColumn switches the estimator to the Kaplan-Meier-Mean-Covariate
	// variant, tracking this continuous covariate's risk-set mean.
	KMMCColumn string `json:"kmmc_column,omitempty"`

	Quantiles Quantiles `json:"quantiles"`

	// CoerceDV applies the documented coercion heuristic to dependent-variable
	// values outside {0,1}: values equal to 2 are treated as the censored code
	// and zeroed, other values above 1 are treated as events and set to 1.
	// This convention comes from the upstream simulation tool's encoding and
	// is preserved verbatim. Nil means the default (enabled); set it to false
	// to require a clean {0,1} column.
	CoerceDV *bool `json:"coerce_dv,omitempty"`

	// DataOnly returns the result object to the caller instead of handing it
	// to the configured renderer.
	DataOnly bool `json:"data_only"`

	// Workers bounds the parallel replicate fan-out. Zero means GOMAXPROCS.
	Workers int `json:"workers,omitempty"`
}

// DefaultConfig returns the documented defaults: NONMEM column names, by-count
// binning into 8 bins, 5/50/95 aggregation quantiles, coercion enabled.
func DefaultConfig() Config {
	coerce := true
	return Config{
		Profile:   MappingNONMEM,
		BinPolicy: BinPolicyByCount,
		NBins:     8,
		Quantiles: Quantiles{Low: 0.05, Mid: 0.5, High: 0.95},
		CoerceDV:  &coerce,
	}
}

// CurvePoint is one step of a survival (or covariate-mean) curve. The band
// bounds are always serialized: a bound clamped to exactly 0 is a legitimate
// value, and Curve.HasBand says whether the bounds mean anything.
type CurvePoint struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Curve is the ordered step function for one stratum. Values are
// monotonically non-increasing in survival mode and start from the implicit
// value 1 before the first point.
type Curve struct {
	Stratum string       `json:"stratum"`
	Points  []CurvePoint `json:"points"`
	HasBand bool         `json:"has_band"`
}

// CensorMark is a display marker for one censored observation, placed on the
// observed curve at the censoring time.
type CensorMark struct {
	Stratum string  `json:"stratum"`
	Time    float64 `json:"time"`
	Value   float64 `json:"value"`
}

// BinStat is the cross-replicate aggregate for one (stratum, bin) cell.
type BinStat struct {
	Stratum  string  `json:"stratum"`
	BinIndex int     `json:"bin_index"`
	BinMid   float64 `json:"bin_mid"`
	BinMin   float64 `json:"bin_min"`
	BinMax   float64 `json:"bin_max"`
	QLow     float64 `json:"q_low"`
	QMedian  float64 `json:"q_median"`
	QHigh    float64 `json:"q_high"`
}

// Result is the complete output of one VPC computation: everything a
// downstream renderer needs, or the direct return value in data-only mode.
type Result struct {
	RunID       core.RunID   `json:"run_id"`
	Config      Config       `json:"config"`
	Strata      []string     `json:"strata"`
	Breakpoints []float64    `json:"breakpoints"`
	Observed    []Curve      `json:"observed,omitempty"`
	Simulated   []BinStat    `json:"simulated,omitempty"`
	Censored    []CensorMark `json:"censored,omitempty"`
	Replicates  int          `json:"replicates"`
	CreatedAt   time.Time    `json:"created_at"`
}
