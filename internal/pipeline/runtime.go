// Package pipeline orchestrates the per-document classification flow:
// fetch, route, classify, resolve, score, and a single atomic apply.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/classifier"
	"github.com/wboerner/archivar/internal/outcomes"
	"github.com/wboerner/archivar/internal/reasoning"
)

// Archive is the subset of the archive client the pipeline depends on.
type Archive interface {
	Document(ctx context.Context, id int) (*archive.Document, error)
	Download(ctx context.Context, id int) ([]byte, error)
	UpdateDocument(ctx context.Context, id int, patch archive.DocumentPatch) error
	CreateEntity(ctx context.Context, kind archive.EntityKind, name string) (*archive.Entity, error)
}

// Reasoner is the classification capability of the reasoning service.
type Reasoner interface {
	Classify(ctx context.Context, pdf []byte, model, system string) (*reasoning.Response, error)
}

// Prompter supplies the current system prompt.
type Prompter interface {
	Prompt() string
}

// Cache is the subset of the entity cache the pipeline depends on: duplicate
// checks before creation, select-option lookup for the status field, and
// refresh after entity creation.
type Cache interface {
	Refresh(ctx context.Context) error
	Lookup(kind archive.EntityKind, name string) (archive.Entity, bool)
	Option(fieldID int, label string) (archive.SelectOption, bool)
}

// Options tune the pipeline's creation behavior. Auto-creation is off by
// default so entity creation stays human-gated. Storage paths are never
// auto-created; they require a path template a human must supply.
type Options struct {
	AutoCreateCorrespondents bool
	AutoCreateTags           bool
	AutoCreateDocumentTypes  bool
}

// Runtime bundles the dependencies the pipeline nodes require.
// It is constructed by higher-level composition code from Infrastructure and
// Domain systems.
type Runtime struct {
	Archive   Archive
	Cache     Cache
	Wellknown *archive.Wellknown
	Reasoner  Reasoner
	Prompts   Prompter
	Resolver  *classifier.Resolver
	Evaluator *classifier.Evaluator
	Router    *classifier.Router
	Outcomes  outcomes.System
	Options   Options
	Logger    *slog.Logger
}
