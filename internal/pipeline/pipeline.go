package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/wboerner/archivar/internal/outcomes"
	"github.com/wboerner/archivar/internal/reasoning"
)

// Process runs the full pipeline for one document. forceModel overrides the
// routing decision when non-empty.
//
// Error contract: transient reasoning overload and a missing document return
// a non-nil error with nothing written to the archive or the outcome store,
// so the caller can abort or surface them. Permanent failures are absorbed
// into a Result with status "error" after the error status is written to the
// archive.
func Process(ctx context.Context, rt *Runtime, documentID int, forceModel string) (*Result, error) {
	r := &run{
		documentID: documentID,
		forceModel: forceModel,
		startedAt:  time.Now().UTC(),
	}

	graph, err := buildGraph(rt, r)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	_, execErr := graph.Execute(ctx, state.New(nil))
	duration := time.Since(r.startedAt)

	if execErr != nil {
		if reasoning.IsOverloaded(execErr) ||
			errors.Is(execErr, ErrDocumentNotFound) ||
			isAbort(ctx, execErr) {
			return nil, execErr
		}
		return failed(ctx, rt, r, duration, execErr)
	}

	if r.skipped {
		return &Result{
			DocumentID: r.documentID,
			Status:     StatusSkipped,
			Duration:   duration,
		}, nil
	}

	return succeeded(ctx, rt, r, duration)
}

func buildGraph(rt *Runtime, r *run) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("archivar-pipeline")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("fetch", fetchNode(rt, r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("route", routeNode(rt, r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("classify", classifyNode(rt, r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("resolve", resolveNode(rt, r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("score", scoreNode(rt, r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("apply", applyNode(rt, r)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("finish", finishNode()); err != nil {
		return nil, err
	}

	skipped := func(state.State) bool { return r.skipped }

	// fetch → finish (document no longer trigger-tagged)
	if err := graph.AddEdge("fetch", "finish", skipped); err != nil {
		return nil, err
	}

	// fetch → route (normal path)
	if err := graph.AddEdge("fetch", "route", state.Not(skipped)); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("route", "classify", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("classify", "resolve", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("resolve", "score", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("score", "apply", nil); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("apply", "finish", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("fetch"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("finish"); err != nil {
		return nil, err
	}

	return graph, nil
}

func finishNode() state.StateNode {
	return state.NewFunctionNode(func(_ context.Context, s state.State) (state.State, error) {
		return s, nil
	})
}

func succeeded(ctx context.Context, rt *Runtime, r *run, duration time.Duration) (*Result, error) {
	eval := r.evaluation

	result := &Result{
		DocumentID:       r.documentID,
		Status:           eval.Status(),
		Level:            eval.Level,
		Score:            eval.Score,
		CostUSD:          r.response.CostUSD,
		Duration:         duration,
		CreateCandidates: r.resolution.CreateNew,
		Created:          r.created,
	}

	result.Outcome = record(ctx, rt, r, duration, nil)
	return result, nil
}

func failed(ctx context.Context, rt *Runtime, r *run, duration time.Duration, execErr error) (*Result, error) {
	rt.Logger.ErrorContext(ctx, "pipeline failed",
		"document_id", r.documentID,
		"error", execErr,
	)

	markError(ctx, rt, r)

	message := execErr.Error()
	result := &Result{
		DocumentID: r.documentID,
		Status:     StatusError,
		Duration:   duration,
		Error:      message,
	}

	// Token spend is only known once a reasoning response exists; earlier
	// failures cost nothing and leave no outcome row.
	if r.response != nil {
		result.CostUSD = r.response.CostUSD
		result.Outcome = record(ctx, rt, r, duration, &message)
	}

	return result, nil
}

// record persists the attempt; persistence failure is logged, not fatal,
// because the archive write already happened.
func record(ctx context.Context, rt *Runtime, r *run, duration time.Duration, errMessage *string) *outcomes.Outcome {
	cmd := outcomes.RecordCommand{
		DocumentID: r.documentID,
		Title:      r.response.Proposal.Title,
		ModelTier:  r.decision.Model,
		Level:      string(r.response.Proposal.Confidence),
		Status:     StatusError,
		Error:      errMessage,
		DurationMS: duration.Milliseconds(),
		StartedAt:  r.startedAt,

		InputTokens:      r.response.Usage.InputTokens,
		OutputTokens:     r.response.Usage.OutputTokens,
		CacheReadTokens:  r.response.Usage.CacheReadTokens,
		CacheWriteTokens: r.response.Usage.CacheWriteTokens,
		CostUSD:          r.response.CostUSD,
	}

	if cmd.Title == "" && r.document != nil {
		cmd.Title = r.document.Title
	}

	if r.evaluation != nil {
		cmd.Level = string(r.evaluation.Level)
		cmd.Score = r.evaluation.Score
		if errMessage == nil {
			cmd.Status = r.evaluation.Status()
		}
	}

	if r.resolution != nil {
		payload := resolvedPayload{
			Resolution: r.resolution,
			Evaluation: r.evaluation,
			Decision:   r.decision,
			Created:    r.created,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			rt.Logger.ErrorContext(ctx, "could not marshal resolved payload",
				"document_id", r.documentID, "error", err,
			)
		} else {
			cmd.Resolved = data
		}
	}

	outcome, err := rt.Outcomes.Record(ctx, cmd)
	if err != nil {
		rt.Logger.ErrorContext(ctx, "could not record outcome",
			"document_id", r.documentID, "error", err,
		)
		return nil
	}
	return outcome
}

func isAbort(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
