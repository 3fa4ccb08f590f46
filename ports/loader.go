package ports

import (
	"context"

	"vpcstats/domain/table"
)

// DatasetLoader is the external collaborator that materializes observed and
// simulated trial datasets from wherever they live (files, a simulation
// platform's output, a database). The engine only ever sees tables.
type DatasetLoader interface {
	LoadObserved(ctx context.Context, source string) (*table.Table, error)
	LoadSimulated(ctx context.Context, source string) (*table.Table, error)
}
