package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/classifier"
	"github.com/wboerner/archivar/internal/outcomes"
	"github.com/wboerner/archivar/internal/pipeline"
	"github.com/wboerner/archivar/pkg/pagination"
)

type service struct {
	archive    pipeline.Archive
	cache      pipeline.Cache
	wellknown  *archive.Wellknown
	outcomes   outcomes.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a review service implementing the System interface.
func New(
	arc pipeline.Archive,
	cache pipeline.Cache,
	wellknown *archive.Wellknown,
	out outcomes.System,
	logger *slog.Logger,
	pg pagination.Config,
) System {
	return &service{
		archive:    arc,
		cache:      cache,
		wellknown:  wellknown,
		outcomes:   out,
		logger:     logger.With("system", "review"),
		pagination: pg,
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

// Queue lists documents whose most recent outcome is still in review status.
func (s *service) Queue(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[outcomes.Outcome], error) {
	return s.outcomes.LatestByStatus(ctx, pipeline.StatusReview, page)
}

// Item loads the pending outcome and the document's current archive state.
func (s *service) Item(ctx context.Context, documentID int) (*Item, error) {
	outcome, err := s.pending(ctx, documentID)
	if err != nil {
		return nil, err
	}

	doc, err := s.document(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return &Item{Document: doc, Outcome: outcome}, nil
}

// Apply writes the reviewer's corrections in one atomic request, sets the
// status field to "manual", and records a manual outcome row so the document
// leaves the review queue.
func (s *service) Apply(
	ctx context.Context,
	documentID int,
	cmd ApplyCommand,
) (*outcomes.Outcome, error) {
	pending, err := s.pending(ctx, documentID)
	if err != nil {
		return nil, err
	}

	doc, err := s.document(ctx, documentID)
	if err != nil {
		return nil, err
	}

	upd := pipeline.Update{
		Status: pipeline.StatusManual,
		Title:  cmd.Title,
		Date:   cmd.Date,

		SetCorrespondent: cmd.Correspondent.Set,
		Correspondent:    cmd.Correspondent.Value,
		SetDocumentType:  cmd.DocumentType.Set,
		DocumentType:     cmd.DocumentType.Value,
		SetStoragePath:   cmd.StoragePath.Set,
		StoragePath:      cmd.StoragePath.Value,

		Tags:         cmd.Tags,
		Fields:       fieldValues(cmd.Fields),
		RemoveFields: cmd.RemoveFields,
	}

	patch, err := pipeline.AtomicPatch(doc, s.wellknown, s.cache, upd)
	if err != nil {
		return nil, fmt.Errorf("build patch: %w", err)
	}

	if err := s.archive.UpdateDocument(ctx, documentID, patch); err != nil {
		return nil, fmt.Errorf("update document %d: %w", documentID, err)
	}

	title := doc.Title
	if cmd.Title != nil && *cmd.Title != "" {
		title = *cmd.Title
	}

	outcome, err := s.outcomes.Record(ctx, outcomes.RecordCommand{
		DocumentID: documentID,
		Title:      title,
		ModelTier:  "manual",
		Level:      pending.Level,
		Status:     pipeline.StatusManual,
		Score:      pending.Score,
		StartedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("record manual outcome: %w", err)
	}

	s.logger.InfoContext(ctx, "review applied",
		"document_id", documentID,
		"outcome_id", outcome.ID,
	)
	return outcome, nil
}

// pending resolves the document's latest outcome and verifies it is still
// awaiting review.
func (s *service) pending(ctx context.Context, documentID int) (*outcomes.Outcome, error) {
	outcome, err := s.outcomes.LatestForDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, outcomes.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if outcome.Status != pipeline.StatusReview {
		return nil, fmt.Errorf("%w: status %q", ErrNotPending, outcome.Status)
	}
	return outcome, nil
}

func (s *service) document(ctx context.Context, documentID int) (*archive.Document, error) {
	doc, err := s.archive.Document(ctx, documentID)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func fieldValues(assignments []FieldAssignment) []classifier.FieldValue {
	if len(assignments) == 0 {
		return nil
	}

	values := make([]classifier.FieldValue, 0, len(assignments))
	for _, a := range assignments {
		values = append(values, classifier.FieldValue{
			FieldID:  a.Field,
			Value:    a.Value,
			Resolved: true,
		})
	}
	return values
}
