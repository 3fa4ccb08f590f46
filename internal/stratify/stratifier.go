// Package stratify builds composite categorical labels from stratification
// variables and partitions tables by them.
package stratify

import (
	"strings"

	"vpcstats/domain/table"
)

// DefaultStratum is the implicit single stratum used when no stratification
// variables are configured.
const DefaultStratum = "all"

// Separator joins the values of multiple stratification variables into one
// composite label.
const Separator = ", "

// Labels returns one composite label per row, built from up to two
// stratification variables plus an optional occurrence column (repeated
// time-to-event mode). With no variables every row gets DefaultStratum.
// A missing column surfaces as the table's column-not-found error before any
// numeric work happens.
func Labels(tbl *table.Table, vars []string, occurrenceCol string) ([]string, error) {
	parts := make([][]string, 0, len(vars)+1)
	for _, v := range vars {
		vals, err := tbl.Strings(v)
		if err != nil {
			return nil, err
		}
		parts = append(parts, vals)
	}
	if occurrenceCol != "" {
		vals, err := tbl.Strings(occurrenceCol)
		if err != nil {
			return nil, err
		}
		parts = append(parts, vals)
	}

	labels := make([]string, tbl.Len())
	for i := range labels {
		if len(parts) == 0 {
			labels[i] = DefaultStratum
			continue
		}
		vals := make([]string, len(parts))
		for j, p := range parts {
			vals[j] = p[i]
		}
		labels[i] = strings.Join(vals, Separator)
	}
	return labels, nil
}

// Partition groups row indices by label. The returned order lists strata by
// first appearance, which is also the display order downstream.
func Partition(labels []string) (order []string, rows map[string][]int) {
	rows = make(map[string][]int)
	for i, l := range labels {
		if _, seen := rows[l]; !seen {
			order = append(order, l)
		}
		rows[l] = append(rows[l], i)
	}
	return order, rows
}
