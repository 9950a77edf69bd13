package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/lineage/internal/verdict"
	"github.com/JaimeStill/lineage/pkg/database"
	"github.com/JaimeStill/lineage/pkg/pagination"
	"github.com/JaimeStill/lineage/pkg/query"
	"github.com/JaimeStill/lineage/pkg/repository"
)

var mapping = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Invalid:   ErrInvalid,
}

type repo struct {
	conn       database.System
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a Postgres-backed System. Calls fail with
// database.ErrNotReady until conn's startup ping has succeeded.
func New(conn database.System, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		conn:       conn,
		db:         conn.Connection(),
		logger:     logger.With("system", "history"),
		pagination: pagination,
	}
}

func (r *repo) ready() error {
	if !r.conn.Ready() {
		return database.ErrNotReady
	}
	return nil
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Record(ctx context.Context, e Entry) error {
	if e.ImageID == "" {
		return fmt.Errorf("%w: image id required", ErrInvalid)
	}
	if err := r.ready(); err != nil {
		return err
	}

	const q = `
		INSERT INTO analyses (id, image_id, filename, score, is_deepfake, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (image_id) DO UPDATE
		SET filename = EXCLUDED.filename,
			score = EXCLUDED.score,
			is_deepfake = EXCLUDED.is_deepfake,
			source = EXCLUDED.source,
			verdict = NULL,
			analyzed_at = now()`

	_, err := r.db.ExecContext(ctx, q, uuid.New(), e.ImageID, e.Filename, e.Score, e.IsDeepfake, string(e.Source))
	if err != nil {
		return mapping.MapError(err)
	}

	r.logger.InfoContext(ctx, "analysis recorded", "image_id", e.ImageID, "source", e.Source)
	return nil
}

func (r *repo) SetVerdict(ctx context.Context, imageID string, v verdict.Verdict) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalid, verdict.ErrUnknownVerdict)
	}
	if err := r.ready(); err != nil {
		return err
	}

	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE analyses SET verdict = $2 WHERE image_id = $1",
		imageID, string(v),
	)
	return mapping.MapError(err)
}

func (r *repo) Recent(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Analysis], error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "filename", "image_id")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderBy(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanAnalysis)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	result := pagination.NewPageResult(items, total, page)
	return &result, nil
}

func (r *repo) Stats(ctx context.Context) (*Stats, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	const q = `
		WITH resolved AS (
			SELECT COALESCE(verdict, CASE
				WHEN is_deepfake THEN 'DEEPFAKE'
				WHEN score > $1 THEN 'SUSPICIOUS'
				ELSE 'AUTHENTIC'
			END) AS verdict
			FROM analyses
		)
		SELECT
			count(*),
			count(*) FILTER (WHERE verdict = 'DEEPFAKE'),
			count(*) FILTER (WHERE verdict = 'MANIPULATED'),
			count(*) FILTER (WHERE verdict = 'SUSPICIOUS'),
			count(*) FILTER (WHERE verdict = 'AUTHENTIC')
		FROM resolved`

	var s Stats
	err := r.db.QueryRowContext(ctx, q, verdict.SuspiciousThreshold).Scan(
		&s.Total, &s.Deepfakes, &s.Manipulated, &s.Suspicious, &s.Authentic,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate analyses: %w", err)
	}
	return &s, nil
}

func scanAnalysis(s repository.Scanner) (Analysis, error) {
	var (
		a      Analysis
		server sql.NullString
		source string
	)
	err := s.Scan(&a.ID, &a.ImageID, &a.Filename, &a.Score, &a.IsDeepfake, &server, &source, &a.AnalyzedAt)
	if err != nil {
		return a, err
	}

	var sv *string
	if server.Valid {
		sv = &server.String
	}
	a.Verdict, a.ServerVerdict = ResolveVerdict(sv, a.Score, a.IsDeepfake)
	a.Source = Source(source)
	return a, nil
}
