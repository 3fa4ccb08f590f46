package survival

import (
	"math"
	"testing"

	"vpcstats/domain/core"
	"vpcstats/domain/vpc"
)

// Four subjects: events at 3 and 7, censoring at 5 and 10. The censored
// subject at t=5 causes no drop but leaves the risk set, so the drop at t=7
// is 1/2 of the surviving fraction.
func TestEstimate_ProductLimit(t *testing.T) {
	obs := []Observation{
		{Time: 3, Event: true},
		{Time: 5, Event: false},
		{Time: 7, Event: true},
		{Time: 10, Event: false},
	}
	points, err := Estimate(obs, Options{})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("expected points at the 2 event times, got %d", len(points))
	}
	if points[0].Time != 3 || !almost(points[0].Value, 0.75) {
		t.Errorf("step at t=3: got (%v, %v), want (3, 0.75)", points[0].Time, points[0].Value)
	}
	if points[1].Time != 7 || !almost(points[1].Value, 0.375) {
		t.Errorf("step at t=7: got (%v, %v), want (7, 0.375)", points[1].Time, points[1].Value)
	}

	// Implicit value before the first event time is 1.
	if v := ValueAt(points, 2.9, 1); v != 1 {
		t.Errorf("survival before first event = %v, want 1", v)
	}
	if v := ValueAt(points, 5, 1); !almost(v, 0.75) {
		t.Errorf("survival at censoring time = %v, want 0.75 (no drop)", v)
	}
}

func TestEstimate_Monotonic(t *testing.T) {
	obs := []Observation{
		{Time: 1, Event: true}, {Time: 2, Event: false}, {Time: 2, Event: true},
		{Time: 4, Event: true}, {Time: 4, Event: true}, {Time: 6, Event: false},
		{Time: 7, Event: true}, {Time: 9, Event: false},
	}
	points, err := Estimate(obs, Options{})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Value > points[i-1].Value {
			t.Fatalf("survival increased at %v: %v -> %v", points[i].Time, points[i-1].Value, points[i].Value)
		}
	}
}

// All events at the same time are applied as one simultaneous step, with
// same-time censoring still in the risk set.
func TestEstimate_TiedEvents(t *testing.T) {
	obs := []Observation{
		{Time: 2, Event: true},
		{Time: 2, Event: true},
		{Time: 2, Event: false},
		{Time: 5, Event: false},
	}
	points, err := Estimate(obs, Options{})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected one step for tied events, got %d", len(points))
	}
	// n=4, d=2: one step to 0.5, not 3/4 * 2/3.
	if !almost(points[0].Value, 0.5) {
		t.Errorf("tied step = %v, want 0.5", points[0].Value)
	}
}

func TestEstimate_AllCensored(t *testing.T) {
	obs := []Observation{{Time: 1, Event: false}, {Time: 4, Event: false}}
	points, err := Estimate(obs, Options{})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("censoring alone must not produce steps, got %d points", len(points))
	}
}

func TestEstimate_AsymmetricBandRejected(t *testing.T) {
	obs := []Observation{{Time: 1, Event: true}}
	_, err := Estimate(obs, Options{Band: &vpc.Interval{Lower: 0.1, Upper: 0.95}})
	if !core.IsConfigurationError(err) {
		t.Fatalf("expected asymmetric CI configuration error, got %v", err)
	}
}

func TestEstimate_GreenwoodBandBracketsSurvival(t *testing.T) {
	obs := []Observation{
		{Time: 1, Event: true}, {Time: 2, Event: true}, {Time: 3, Event: false},
		{Time: 4, Event: true}, {Time: 6, Event: true}, {Time: 8, Event: false},
	}
	points, err := Estimate(obs, Options{Band: &vpc.Interval{Lower: 0.05, Upper: 0.95}})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for _, p := range points {
		if p.Lower > p.Value || p.Value > p.Upper {
			t.Errorf("band does not bracket survival at t=%v: [%v, %v] around %v", p.Time, p.Lower, p.Upper, p.Value)
		}
		if p.Lower < 0 || p.Upper > 1 {
			t.Errorf("band escapes [0,1] at t=%v: [%v, %v]", p.Time, p.Lower, p.Upper)
		}
	}
}

func TestEstimate_ReverseProbability(t *testing.T) {
	obs := []Observation{
		{Time: 3, Event: true},
		{Time: 5, Event: false},
		{Time: 7, Event: true},
		{Time: 10, Event: false},
	}
	points, err := Estimate(obs, Options{Reverse: true, Band: &vpc.Interval{Lower: 0.05, Upper: 0.95}})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !almost(points[0].Value, 0.25) || !almost(points[1].Value, 0.625) {
		t.Errorf("reverse values = %v, %v; want 0.25, 0.625", points[0].Value, points[1].Value)
	}
	// Cumulative incidence before any event is 0.
	if v := ValueAt(points, 0, 0); v != 0 {
		t.Errorf("incidence at t=0 is %v, want 0", v)
	}
	for _, p := range points {
		if p.Lower > p.Value || p.Value > p.Upper {
			t.Errorf("reversed band out of order at t=%v: [%v, %v] around %v", p.Time, p.Lower, p.Upper, p.Value)
		}
	}
}

// Resampling onto a finer grid never changes values at the original event
// times, and intermediate points carry the most recent preceding value.
func TestValueAt_CarryForward(t *testing.T) {
	points := []vpc.CurvePoint{
		{Time: 2, Value: 0.8},
		{Time: 6, Value: 0.4},
	}
	cases := []struct {
		t    float64
		want float64
	}{
		{0, 1}, {1.99, 1},
		{2, 0.8}, {3, 0.8}, {5.999, 0.8},
		{6, 0.4}, {100, 0.4},
	}
	for _, c := range cases {
		if got := ValueAt(points, c.t, 1); got != c.want {
			t.Errorf("ValueAt(%v) = %v, want %v", c.t, got, c.want)
		}
	}
}

func TestEstimateMeanCovariate(t *testing.T) {
	obs := []CovObservation{
		{Time: 1, Event: true, Value: 10},
		{Time: 2, Event: false, Value: 20},
		{Time: 3, Event: true, Value: 30},
	}
	points := EstimateMeanCovariate(obs)
	if len(points) != 3 {
		t.Fatalf("expected a point per distinct time, got %d", len(points))
	}
	// Risk-set means: {10,20,30}, {20,30}, {30}.
	want := []float64{20, 25, 30}
	for i, p := range points {
		if !almost(p.Value, want[i]) {
			t.Errorf("mean at t=%v is %v, want %v", p.Time, p.Value, want[i])
		}
	}
}

func almost(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
