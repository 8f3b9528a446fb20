package outcomes

import (
	"context"

	"github.com/google/uuid"

	"github.com/wboerner/archivar/pkg/pagination"
)

// System defines the public contract for outcome domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Outcome], error)

	Find(ctx context.Context, id uuid.UUID) (*Outcome, error)
	Record(ctx context.Context, cmd RecordCommand) (*Outcome, error)
	LatestForDocument(ctx context.Context, documentID int) (*Outcome, error)

	// LatestByStatus pages through documents whose most recent outcome has
	// the given status. Older attempts for the same document are ignored.
	LatestByStatus(
		ctx context.Context,
		status string,
		page pagination.PageRequest,
	) (*pagination.PageResult[Outcome], error)

	MonthlyCost(ctx context.Context, month string) (*CostSummary, error)
}
