package binning

import (
	"testing"

	"vpcstats/domain/vpc"
)

func TestBreakpoints_None_UsesDistinctTimes(t *testing.T) {
	bp, err := Breakpoints(vpc.BinPolicyNone, []float64{5, 3, 3, 9, 5}, 0, nil)
	if err != nil {
		t.Fatalf("Breakpoints: %v", err)
	}
	want := []float64{0, 3, 5, 9}
	assertBreaks(t, bp, want)
}

func TestBreakpoints_Explicit_BoundedAtZeroAndMax(t *testing.T) {
	bp, err := Breakpoints(vpc.BinPolicyExplicit, []float64{1, 4, 12}, 0, []float64{2, 6})
	if err != nil {
		t.Fatalf("Breakpoints: %v", err)
	}
	assertBreaks(t, bp, []float64{0, 2, 6, 12})
}

func TestBreakpoints_ByDensity_EqualWidths(t *testing.T) {
	bp, err := Breakpoints(vpc.BinPolicyByDensity, []float64{1, 5, 10}, 5, nil)
	if err != nil {
		t.Fatalf("Breakpoints: %v", err)
	}
	assertBreaks(t, bp, []float64{0, 2, 4, 6, 8, 10})
}

func TestBreakpoints_ByCount_CoversRange(t *testing.T) {
	times := make([]float64, 100)
	for i := range times {
		times[i] = float64(i + 1)
	}
	bp, err := Breakpoints(vpc.BinPolicyByCount, times, 4, nil)
	if err != nil {
		t.Fatalf("Breakpoints: %v", err)
	}
	if bp[0] != 0 {
		t.Errorf("first breakpoint should be 0, got %v", bp[0])
	}
	if bp[len(bp)-1] < 100 {
		t.Errorf("last breakpoint should reach the max, got %v", bp[len(bp)-1])
	}
	for i := 1; i < len(bp); i++ {
		if bp[i] < bp[i-1] {
			t.Fatalf("breakpoints not non-decreasing: %v", bp)
		}
	}
}

func TestBreakpoints_SingleDistinctTime_SingleBin(t *testing.T) {
	bp, err := Breakpoints(vpc.BinPolicyByCount, []float64{7, 7, 7}, 4, nil)
	if err != nil {
		t.Fatalf("Breakpoints: %v", err)
	}
	assertBreaks(t, bp, []float64{0, 7})

	grid, err := NewGrid(bp)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	if len(grid.Bins) != 1 {
		t.Fatalf("expected a single bin, got %d", len(grid.Bins))
	}
}

func TestBreakpoints_MirrorRejected(t *testing.T) {
	if _, err := Breakpoints(vpc.BinPolicyMirror, []float64{1, 2}, 0, nil); err == nil {
		t.Fatal("mirror policy must be resolved by the caller")
	}
}

func TestGrid_RightClosedMembership(t *testing.T) {
	grid, err := NewGrid([]float64{0, 2, 4, 8})
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	cases := []struct {
		t    float64
		want int
	}{
		{0, 0},
		{1.5, 0},
		{2, 0}, // boundary belongs to the lower bin
		{2.1, 1},
		{4, 1},
		{8, 2},
		{9, 2}, // beyond the grid clamps to the last bin
	}
	for _, c := range cases {
		if got := grid.locate(c.t); got != c.want {
			t.Errorf("locate(%v) = %d, want %d", c.t, got, c.want)
		}
	}
}

// Every input time maps to exactly one bin.
func TestGrid_Coverage(t *testing.T) {
	times := []float64{0, 0.5, 1, 2, 3.7, 5, 9, 12}
	bp, err := Breakpoints(vpc.BinPolicyByDensity, times, 4, nil)
	if err != nil {
		t.Fatalf("Breakpoints: %v", err)
	}
	grid, err := NewGrid(bp)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	for _, tv := range times {
		idx := grid.locate(tv)
		if idx < 0 || idx >= len(grid.Bins) {
			t.Fatalf("locate(%v) out of range: %d", tv, idx)
		}
		bin := grid.Bins[idx]
		if tv > bin.Hi || (idx > 0 && tv <= bin.Lo) {
			t.Errorf("time %v assigned to bin (%v, %v]", tv, bin.Lo, bin.Hi)
		}
	}
}

func assertBreaks(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("breakpoints = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("breakpoints = %v, want %v", got, want)
		}
	}
}
