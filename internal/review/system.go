package review

import (
	"context"

	"github.com/wboerner/archivar/internal/outcomes"
	"github.com/wboerner/archivar/pkg/pagination"
)

// System defines the public contract for review domain operations.
type System interface {
	Handler() *Handler

	Queue(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[outcomes.Outcome], error)
	Item(ctx context.Context, documentID int) (*Item, error)
	Apply(ctx context.Context, documentID int, cmd ApplyCommand) (*outcomes.Outcome, error)
}
