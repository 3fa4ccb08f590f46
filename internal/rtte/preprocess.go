// Package rtte prepares raw event tables for estimation: repeated
// time-to-event preprocessing, terminal-record reduction, and simulation
// replicate inference.
package rtte

import (
	"sort"

	"vpcstats/domain/table"
)

// OccurrenceColumn is the name of the event-occurrence index column the
// preprocessor adds. Within a subject it is 1, 2, ... in chronological order,
// counting every record including the terminal censoring mark.
const OccurrenceColumn = "OCC"

// Options control repeated time-to-event preprocessing.
type Options struct {
	// Relative recalculates the time column to time since the previous event
	// (or the origin for a subject's first record).
	Relative bool
	// Events restricts the output to these occurrence indices. Empty keeps
	// all occurrences.
	Events []int
}

// Preprocess converts a per-subject event series into repeated time-to-event
// form: it appends the occurrence index column and, when requested, replaces
// absolute times with inter-event deltas. Rows are grouped per subject (and
// per replicate when repCol is set) and ordered chronologically within each
// group; the output preserves the input row order otherwise.
func Preprocess(tbl *table.Table, idCol, timeCol, repCol string, opt Options) (*table.Table, error) {
	ids, err := tbl.Strings(idCol)
	if err != nil {
		return nil, err
	}
	times, err := tbl.Numeric(timeCol)
	if err != nil {
		return nil, err
	}
	var reps []string
	if repCol != "" && tbl.Has(repCol) {
		reps, err = tbl.Strings(repCol)
		if err != nil {
			return nil, err
		}
	}

	groups := groupRows(ids, reps)
	occ := make([]float64, tbl.Len())
	relTimes := make([]float64, tbl.Len())

	for _, rows := range groups {
		chron := make([]int, len(rows))
		copy(chron, rows)
		sort.SliceStable(chron, func(i, j int) bool { return times[chron[i]] < times[chron[j]] })

		prev := 0.0
		for k, r := range chron {
			occ[r] = float64(k + 1)
			relTimes[r] = times[r] - prev
			prev = times[r]
		}
	}

	out, err := tbl.WithNumeric(OccurrenceColumn, occ)
	if err != nil {
		return nil, err
	}
	if opt.Relative {
		out, err = out.WithNumeric(timeCol, relTimes)
		if err != nil {
			return nil, err
		}
	}
	if len(opt.Events) > 0 {
		keep := make(map[int]bool, len(opt.Events))
		for _, e := range opt.Events {
			keep[e] = true
		}
		var rows []int
		for i, o := range occ {
			if keep[int(o)] {
				rows = append(rows, i)
			}
		}
		// Filtering before stratification re-tightens the category ordering:
		// downstream first-appearance order never sees empty occurrence levels.
		out, err = out.Select(rows)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReduceToTerminal de-duplicates a non-repeated dataset to one row per
// subject (per replicate): the chronologically first event row if the subject
// has any event, otherwise the last censoring record.
func ReduceToTerminal(tbl *table.Table, idCol, timeCol, dvCol, repCol string) (*table.Table, error) {
	ids, err := tbl.Strings(idCol)
	if err != nil {
		return nil, err
	}
	times, err := tbl.Numeric(timeCol)
	if err != nil {
		return nil, err
	}
	dv, err := tbl.Numeric(dvCol)
	if err != nil {
		return nil, err
	}
	var reps []string
	if repCol != "" && tbl.Has(repCol) {
		reps, err = tbl.Strings(repCol)
		if err != nil {
			return nil, err
		}
	}

	groups := groupRows(ids, reps)
	keep := make([]int, 0, len(groups))
	for _, rows := range groups {
		chron := make([]int, len(rows))
		copy(chron, rows)
		sort.SliceStable(chron, func(i, j int) bool { return times[chron[i]] < times[chron[j]] })

		chosen := chron[len(chron)-1]
		for _, r := range chron {
			if dv[r] != 0 {
				chosen = r
				break
			}
		}
		keep = append(keep, chosen)
	}
	sort.Ints(keep)
	return tbl.Select(keep)
}

// InferReplicates derives a replicate index per row for simulated datasets
// that carry no replicate column. A replicate boundary is declared wherever
// the current subject id equals the dataset's last id and the next row's id
// equals the dataset's first id.
func InferReplicates(tbl *table.Table, idCol string) ([]float64, error) {
	ids, err := tbl.Strings(idCol)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	first, last := ids[0], ids[len(ids)-1]
	rep := 1.0
	for i := range ids {
		out[i] = rep
		if ids[i] == last && i+1 < len(ids) && ids[i+1] == first {
			rep++
		}
	}
	return out, nil
}

// groupRows collects row indices per (id, replicate) key in encounter order.
func groupRows(ids, reps []string) [][]int {
	type key struct{ id, rep string }
	index := make(map[key]int)
	var groups [][]int
	for i, id := range ids {
		k := key{id: id}
		if reps != nil {
			k.rep = reps[i]
		}
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}
