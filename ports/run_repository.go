package ports

import (
	"context"

	"vpcstats/domain/core"
	"vpcstats/domain/vpc"
)

// RunRepository persists computed VPC runs for later retrieval.
type RunRepository interface {
	Save(ctx context.Context, result *vpc.Result) error
	Get(ctx context.Context, id core.RunID) (*vpc.Result, error)
	List(ctx context.Context, limit int) ([]*vpc.Result, error)
}
