package history

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/lineage/internal/verdict"
	"github.com/JaimeStill/lineage/pkg/pagination"
)

type disabled struct {
	logger     *slog.Logger
	pagination pagination.Config
}

// Disabled returns a System for services without a database. Writes are
// dropped and reads fail with ErrUnavailable.
func Disabled(logger *slog.Logger, pagination pagination.Config) System {
	return &disabled{
		logger:     logger.With("system", "history"),
		pagination: pagination,
	}
}

func (d *disabled) Handler() *Handler {
	return NewHandler(d, d.logger, d.pagination)
}

func (d *disabled) Record(context.Context, Entry) error { return nil }

func (d *disabled) SetVerdict(context.Context, string, verdict.Verdict) error { return nil }

func (d *disabled) Recent(context.Context, pagination.PageRequest, Filters) (*pagination.PageResult[Analysis], error) {
	return nil, ErrUnavailable
}

func (d *disabled) Stats(context.Context) (*Stats, error) {
	return nil, ErrUnavailable
}
