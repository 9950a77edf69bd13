package history

import (
	"context"

	"github.com/JaimeStill/lineage/internal/verdict"
	"github.com/JaimeStill/lineage/pkg/pagination"
)

// System records analyses and reads them back.
type System interface {
	Handler() *Handler

	// Record stores a completed analysis. Recording the same image again
	// replaces its score and clears any server verdict.
	Record(ctx context.Context, entry Entry) error
	// SetVerdict attaches the service's report verdict to a recorded image.
	SetVerdict(ctx context.Context, imageID string, v verdict.Verdict) error
	// Recent lists analyses newest first unless page.Sort says otherwise.
	Recent(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Analysis], error)
	Stats(ctx context.Context) (*Stats, error)
}
