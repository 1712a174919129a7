package store

import (
	"context"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

// GraphSink persists aggregated paper graphs into an external database.
// Saving a paper replaces whatever was stored for it before.
type GraphSink interface {
	SaveGraph(ctx context.Context, g common.Graph) error
	DeleteGraph(ctx context.Context, paperID string) error
}
