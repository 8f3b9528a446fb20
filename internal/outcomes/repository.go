package outcomes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wboerner/archivar/pkg/pagination"
	"github.com/wboerner/archivar/pkg/query"
	"github.com/wboerner/archivar/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an outcome repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "outcomes"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Outcome], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Title", "Error")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanOutcome)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	o, err := repository.QueryOne(ctx, r.db, q, args, scanOutcome)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, nil)
	}
	return &o, nil
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Outcome, error) {
	startedAt := cmd.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	insertQ := `
		INSERT INTO outcomes(
			id, document_id, title, model_tier, level, status, score,
			input_tokens, output_tokens, cache_read_tokens, cache_write_tokens,
			cost_usd, duration_ms, error, resolved, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, document_id, title, model_tier, level, status, score,
				  input_tokens, output_tokens, cache_read_tokens, cache_write_tokens,
				  cost_usd, duration_ms, error, resolved, started_at`

	var resolved any
	if len(cmd.Resolved) > 0 {
		resolved = []byte(cmd.Resolved)
	}

	args := []any{
		uuid.New(),
		cmd.DocumentID,
		cmd.Title,
		cmd.ModelTier,
		cmd.Level,
		cmd.Status,
		cmd.Score,
		cmd.InputTokens,
		cmd.OutputTokens,
		cmd.CacheReadTokens,
		cmd.CacheWriteTokens,
		cmd.CostUSD,
		cmd.DurationMS,
		cmd.Error,
		resolved,
		startedAt,
	}

	o, err := repository.QueryOne(ctx, r.db, insertQ, args, scanOutcome)
	if err != nil {
		return nil, fmt.Errorf("record outcome: %w", err)
	}

	r.logger.Info("outcome recorded",
		"id", o.ID,
		"document_id", o.DocumentID,
		"status", o.Status,
		"level", o.Level,
		"cost_usd", o.CostUSD,
	)
	return &o, nil
}

func (r *repo) LatestForDocument(ctx context.Context, documentID int) (*Outcome, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("DocumentID", documentID).
		BuildSingleOrNull()

	o, err := repository.QueryOne(ctx, r.db, q, args, scanOutcome)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, nil)
	}
	return &o, nil
}

// latestQ selects each document's most recent outcome row. DISTINCT ON keeps
// the first row per document under the inner ordering, which is newest first.
const latestQ = `
	SELECT DISTINCT ON (document_id)
		   id, document_id, title, model_tier, level, status, score,
		   input_tokens, output_tokens, cache_read_tokens, cache_write_tokens,
		   cost_usd, duration_ms, error, resolved, started_at
	FROM outcomes
	ORDER BY document_id, started_at DESC`

func (r *repo) LatestByStatus(
	ctx context.Context,
	status string,
	page pagination.PageRequest,
) (*pagination.PageResult[Outcome], error) {
	page.Normalize(r.pagination)

	countQ := `SELECT COUNT(*) FROM (` + latestQ + `) latest WHERE status = $1`

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, status).Scan(&total); err != nil {
		return nil, fmt.Errorf("count latest outcomes: %w", err)
	}

	pageQ := `
		SELECT id, document_id, title, model_tier, level, status, score,
			   input_tokens, output_tokens, cache_read_tokens, cache_write_tokens,
			   cost_usd, duration_ms, error, resolved, started_at
		FROM (` + latestQ + `) latest
		WHERE status = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`

	args := []any{status, page.PageSize, page.Offset()}
	items, err := repository.QueryMany(ctx, r.db, pageQ, args, scanOutcome)
	if err != nil {
		return nil, fmt.Errorf("query latest outcomes: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

// MonthlyCost aggregates cost and token totals for one calendar month.
// The month parameter is YYYY-MM; empty means the current month.
func (r *repo) MonthlyCost(ctx context.Context, month string) (*CostSummary, error) {
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}

	start, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, ErrInvalidMonth
	}
	end := start.AddDate(0, 1, 0)

	costQ := `
		SELECT COALESCE(SUM(cost_usd), 0),
			   COUNT(*),
			   COALESCE(SUM(input_tokens + output_tokens + cache_read_tokens + cache_write_tokens), 0)
		FROM outcomes
		WHERE started_at >= $1 AND started_at < $2`

	summary := CostSummary{Month: month}
	err = r.db.
		QueryRowContext(ctx, costQ, start, end).
		Scan(&summary.TotalUSD, &summary.Requests, &summary.TotalTokens)
	if err != nil {
		return nil, fmt.Errorf("aggregate monthly cost: %w", err)
	}

	return &summary, nil
}
