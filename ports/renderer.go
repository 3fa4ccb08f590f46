package ports

import (
	"context"

	"vpcstats/domain/vpc"
)

// Renderer is the external plotting collaborator. It consumes a fully
// computed result table; in data-only mode it is bypassed and the result is
// returned to the caller instead.
type Renderer interface {
	Render(ctx context.Context, result *vpc.Result) error
}
