package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/wboerner/archivar/internal/archive"
)

// fetchNode loads the document and its file content. A document that no
// longer carries the trigger tag was handled by someone else between
// discovery and processing; it is skipped without any archive write.
func fetchNode(rt *Runtime, r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		doc, err := rt.Archive.Document(ctx, r.documentID)
		if err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				return s, fmt.Errorf("fetch: %w", ErrDocumentNotFound)
			}
			return s, fmt.Errorf("fetch: %w", err)
		}
		r.document = doc

		if !doc.HasTag(rt.Wellknown.TriggerTag.ID) {
			r.skipped = true
			rt.Logger.InfoContext(ctx, "document no longer trigger-tagged, skipping",
				"document_id", r.documentID,
			)
			return s, nil
		}

		pdf, err := rt.Archive.Download(ctx, r.documentID)
		if err != nil {
			return s, fmt.Errorf("fetch: download document %d: %w", r.documentID, err)
		}
		r.pdf = pdf

		rt.Logger.InfoContext(ctx, "fetch node complete",
			"document_id", r.documentID,
			"size_bytes", len(pdf),
		)
		return s, nil
	})
}

// routeNode inspects the PDF locally and selects the model tier. A
// correspondent counts as known only when the pipeline has already produced
// a status for this document; an archive auto-match alone does not qualify.
func routeNode(rt *Runtime, r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		analysis, err := rt.Router.Analyze(r.pdf)
		if err != nil {
			return s, fmt.Errorf("route: %w", err)
		}
		r.analysis = analysis

		known := r.document.Correspondent != nil &&
			r.document.FieldValue(rt.Wellknown.StatusField.ID) != nil

		// Overrides accept either a tier name or a raw model identifier.
		force := r.forceModel
		if model, ok := rt.Router.Tier(force); ok {
			force = model
		}

		r.decision = rt.Router.Route(analysis, known, force)

		rt.Logger.InfoContext(ctx, "route node complete",
			"document_id", r.documentID,
			"model", r.decision.Model,
			"reason", r.decision.Reason,
		)
		return s, nil
	})
}

// classifyNode sends the document to the reasoning service. Transient
// overload errors propagate unchanged so the cycle driver can abort the
// cycle without any archive write.
func classifyNode(rt *Runtime, r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		response, err := rt.Reasoner.Classify(ctx, r.pdf, r.decision.Model, rt.Prompts.Prompt())
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}
		r.response = response

		rt.Logger.InfoContext(ctx, "classify node complete",
			"document_id", r.documentID,
			"title", response.Proposal.Title,
			"confidence", response.Proposal.Confidence,
			"cost_usd", response.CostUSD,
		)
		return s, nil
	})
}

// resolveNode maps proposal names to archive identifiers, then handles any
// configured auto-creation of missing entities.
func resolveNode(rt *Runtime, r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		r.resolution = rt.Resolver.Resolve(&r.response.Proposal)

		if err := createEntities(ctx, rt, r); err != nil {
			return s, fmt.Errorf("resolve: %w", err)
		}

		rt.Logger.InfoContext(ctx, "resolve node complete",
			"document_id", r.documentID,
			"resolved", r.resolution.ResolvedFields(),
			"named", r.resolution.NamedFields(),
			"null_fields", r.resolution.NullFieldCount,
		)
		return s, nil
	})
}

// scoreNode evaluates confidence for the resolved classification.
func scoreNode(rt *Runtime, r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		evaluation := rt.Evaluator.Evaluate(&r.response.Proposal, r.resolution)
		r.evaluation = &evaluation

		rt.Logger.InfoContext(ctx, "score node complete",
			"document_id", r.documentID,
			"score", evaluation.Score,
			"level", evaluation.Level,
			"action", evaluation.Action,
		)
		return s, nil
	})
}
