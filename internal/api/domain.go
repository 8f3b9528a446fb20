package api

import (
	"github.com/wboerner/archivar/internal/classifier"
	"github.com/wboerner/archivar/internal/outcomes"
	"github.com/wboerner/archivar/internal/pipeline"
	"github.com/wboerner/archivar/internal/poller"
	"github.com/wboerner/archivar/internal/reasoning"
	"github.com/wboerner/archivar/internal/review"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Outcomes outcomes.System
	Review   review.System
	Poller   *poller.Poller
	Pipeline *pipeline.Runtime
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	cfg := runtime.Config

	outcomesSystem := outcomes.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	reasoner := reasoning.NewClient(
		cfg.Reasoning.APIKey,
		cfg.Reasoning.MaxTokens,
		cfg.Archive.MaxDocumentSizeBytes(),
		runtime.Logger,
	)

	pipelineRuntime := &pipeline.Runtime{
		Archive:   runtime.Archive,
		Cache:     runtime.Cache,
		Wellknown: runtime.Wellknown,
		Reasoner:  reasoner,
		Prompts:   reasoning.NewPromptBuilder(runtime.Cache, runtime.Wellknown),
		Resolver: classifier.NewResolver(
			runtime.Cache,
			runtime.Wellknown,
			cfg.Pipeline.FuzzyThreshold,
			cfg.Pipeline.TaxTagPattern,
			runtime.Logger,
		),
		Evaluator: classifier.NewEvaluator(cfg.Pipeline.Weights, runtime.Logger),
		Router: classifier.NewRouter(
			cfg.Reasoning.CapableModel,
			cfg.Reasoning.FastModel,
			runtime.Logger,
		),
		Outcomes: outcomesSystem,
		Options:  cfg.Pipeline.Options(),
		Logger:   runtime.Logger,
	}

	reviewSystem := review.New(
		runtime.Archive,
		runtime.Cache,
		runtime.Wellknown,
		outcomesSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Outcomes: outcomesSystem,
		Review:   reviewSystem,
		Poller:   poller.New(pipelineRuntime, runtime.Archive, cfg.Poller.PollerOptions(), runtime.Logger),
		Pipeline: pipelineRuntime,
	}
}
