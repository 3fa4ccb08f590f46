package table

import (
	"testing"
)

func TestNew_RejectsRaggedColumns(t *testing.T) {
	_, err := New(
		Column{Name: "TIME", Numeric: []float64{1, 2, 3}},
		Column{Name: "DV", Numeric: []float64{1, 0}},
	)
	if err == nil {
		t.Fatal("expected error for columns of different lengths")
	}
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	_, err := New(
		Column{Name: "TIME", Numeric: []float64{1}},
		Column{Name: "TIME", Numeric: []float64{2}},
	)
	if err == nil {
		t.Fatal("expected error for duplicate column names")
	}
}

func TestColumn_NotFound(t *testing.T) {
	tbl := MustNew(Column{Name: "TIME", Numeric: []float64{1, 2}})
	if _, err := tbl.Numeric("DV"); err == nil {
		t.Fatal("expected column-not-found error")
	}
}

func TestWithNumeric_DoesNotMutateOriginal(t *testing.T) {
	tbl := MustNew(Column{Name: "DV", Numeric: []float64{2, 1, 0}})

	coerced, err := tbl.WithNumeric("DV", []float64{0, 1, 0})
	if err != nil {
		t.Fatalf("WithNumeric: %v", err)
	}

	orig, _ := tbl.Numeric("DV")
	if orig[0] != 2 {
		t.Errorf("original table mutated: got %v", orig)
	}
	next, _ := coerced.Numeric("DV")
	if next[0] != 0 {
		t.Errorf("new table missing replacement: got %v", next)
	}
}

func TestWithNumeric_AppendsNewColumn(t *testing.T) {
	tbl := MustNew(Column{Name: "TIME", Numeric: []float64{1, 2}})
	out, err := tbl.WithNumeric("OCC", []float64{1, 2})
	if err != nil {
		t.Fatalf("WithNumeric: %v", err)
	}
	if !out.Has("OCC") {
		t.Error("expected OCC column on new table")
	}
	if tbl.Has("OCC") {
		t.Error("original table gained a column")
	}
	names := out.Names()
	if names[len(names)-1] != "OCC" {
		t.Errorf("appended column should be last, got %v", names)
	}
}

func TestSelect_SubsetsAllColumns(t *testing.T) {
	tbl := MustNew(
		Column{Name: "TIME", Numeric: []float64{1, 2, 3}},
		Column{Name: "GRP", Labels: []string{"a", "b", "a"}},
	)
	sub, err := tbl.Select([]int{2, 0})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sub.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", sub.Len())
	}
	times, _ := sub.Numeric("TIME")
	if times[0] != 3 || times[1] != 1 {
		t.Errorf("unexpected times %v", times)
	}
	grp, _ := sub.Strings("GRP")
	if grp[0] != "a" || grp[1] != "a" {
		t.Errorf("unexpected groups %v", grp)
	}
}

func TestSelect_RejectsOutOfRange(t *testing.T) {
	tbl := MustNew(Column{Name: "TIME", Numeric: []float64{1}})
	if _, err := tbl.Select([]int{1}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestStrings_FormatsNumerics(t *testing.T) {
	tbl := MustNew(Column{Name: "OCC", Numeric: []float64{1, 2.5}})
	vals, err := tbl.Strings("OCC")
	if err != nil {
		t.Fatalf("Strings: %v", err)
	}
	if vals[0] != "1" || vals[1] != "2.5" {
		t.Errorf("unexpected formatting %v", vals)
	}
}
