package outcomes

import (
	"net/url"
	"strconv"

	"github.com/wboerner/archivar/pkg/pagination"
	"github.com/wboerner/archivar/pkg/query"
	"github.com/wboerner/archivar/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "outcomes", "o").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("title", "Title").
	Project("model_tier", "ModelTier").
	Project("level", "Level").
	Project("status", "Status").
	Project("score", "Score").
	Project("input_tokens", "InputTokens").
	Project("output_tokens", "OutputTokens").
	Project("cache_read_tokens", "CacheReadTokens").
	Project("cache_write_tokens", "CacheWriteTokens").
	Project("cost_usd", "CostUSD").
	Project("duration_ms", "DurationMS").
	Project("error", "Error").
	Project("resolved", "Resolved").
	Project("started_at", "StartedAt")

var defaultSort = pagination.SortField{
	Field:      "StartedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for outcome queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Status     *string `json:"status,omitempty"`
	Level      *string `json:"level,omitempty"`
	DocumentID *int    `json:"document_id,omitempty"`
	ModelTier  *string `json:"model_tier,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Level", f.Level).
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("ModelTier", f.ModelTier)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if l := values.Get("level"); l != "" {
		f.Level = &l
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := strconv.Atoi(d); err == nil {
			f.DocumentID = &id
		}
	}

	if t := values.Get("model_tier"); t != "" {
		f.ModelTier = &t
	}

	return f
}

func scanOutcome(s repository.Scanner) (Outcome, error) {
	var o Outcome
	var resolved []byte

	err := s.Scan(
		&o.ID,
		&o.DocumentID,
		&o.Title,
		&o.ModelTier,
		&o.Level,
		&o.Status,
		&o.Score,
		&o.InputTokens,
		&o.OutputTokens,
		&o.CacheReadTokens,
		&o.CacheWriteTokens,
		&o.CostUSD,
		&o.DurationMS,
		&o.Error,
		&resolved,
		&o.StartedAt,
	)

	if err != nil {
		return o, err
	}

	if len(resolved) > 0 {
		o.Resolved = resolved
	}

	return o, nil
}
