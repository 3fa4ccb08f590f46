package api

import (
	"fmt"

	"vpcstats/domain/table"
	"vpcstats/domain/vpc"
)

// ColumnPayload is one column of an inline dataset. Exactly one of Numeric
// or Labels must be set.
type ColumnPayload struct {
	Name    string    `json:"name"`
	Numeric []float64 `json:"numeric,omitempty"`
	Labels  []string  `json:"labels,omitempty"`
}

// DatasetPayload is a tabular dataset submitted inline with a compute
// request.
type DatasetPayload struct {
	Columns []ColumnPayload `json:"columns"`
}

// ComputeRequest is the body of POST /v1/vpc. Each dataset arrives either
// inline or as a source reference resolved through the configured loader;
// at least one dataset must be present.
type ComputeRequest struct {
	Observed        *DatasetPayload `json:"observed,omitempty"`
	Simulated       *DatasetPayload `json:"simulated,omitempty"`
	ObservedSource  string          `json:"observed_source,omitempty"`
	SimulatedSource string          `json:"simulated_source,omitempty"`
	Config          vpc.Config      `json:"config"`
}

// ComputeResponse acknowledges a rendered run. Data-only requests receive
// the full result object instead.
type ComputeResponse struct {
	RunID string `json:"run_id"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// toTable converts a payload to the immutable domain table. A nil payload
// yields a nil table (the dataset was not supplied).
func (p *DatasetPayload) toTable() (*table.Table, error) {
	if p == nil || len(p.Columns) == 0 {
		return nil, nil
	}
	cols := make([]table.Column, 0, len(p.Columns))
	for _, c := range p.Columns {
		if (c.Numeric == nil) == (c.Labels == nil) {
			return nil, fmt.Errorf("column %q must set exactly one of numeric or labels", c.Name)
		}
		cols = append(cols, table.Column{Name: c.Name, Numeric: c.Numeric, Labels: c.Labels})
	}
	return table.New(cols...)
}
