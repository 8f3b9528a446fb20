package pipeline

import (
	"time"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/classifier"
	"github.com/wboerner/archivar/internal/outcomes"
	"github.com/wboerner/archivar/internal/reasoning"
)

// Pipeline status values written to the archive's status field.
const (
	StatusClassified = "classified"
	StatusReview     = "review"
	StatusError      = "error"
	StatusManual     = "manual"
	StatusSkipped    = "skipped"
)

// run carries the accumulating state of one document through the graph.
// Nodes mutate it through a shared pointer so partial results (token usage in
// particular) survive a downstream failure and still reach the outcome store.
type run struct {
	documentID int
	forceModel string

	document   *archive.Document
	pdf        []byte
	analysis   *classifier.Analysis
	decision   classifier.Decision
	response   *reasoning.Response
	resolution *classifier.Resolution
	evaluation *classifier.Evaluation
	created    []CreatedEntity

	skipped   bool
	startedAt time.Time
}

// CreatedEntity records one archive entity the pipeline auto-created.
type CreatedEntity struct {
	Kind archive.EntityKind `json:"kind"`
	Name string             `json:"name"`
	ID   int                `json:"id"`
}

// Result is the terminal outcome of one pipeline execution.
type Result struct {
	DocumentID int                       `json:"document_id"`
	Status     string                    `json:"status"`
	Level      reasoning.ConfidenceLevel `json:"level,omitempty"`
	Score      float64                   `json:"score"`
	CostUSD    float64                   `json:"cost_usd"`
	Duration   time.Duration             `json:"duration"`
	Error      string                    `json:"error,omitempty"`

	CreateCandidates reasoning.CreateNew `json:"create_candidates"`
	Created          []CreatedEntity     `json:"created,omitempty"`

	Outcome *outcomes.Outcome `json:"outcome,omitempty"`
}

// resolvedPayload is what the outcome store persists in the resolved column
// for review consumers.
type resolvedPayload struct {
	Resolution *classifier.Resolution `json:"resolution"`
	Evaluation *classifier.Evaluation `json:"evaluation"`
	Decision   classifier.Decision    `json:"decision"`
	Created    []CreatedEntity        `json:"created,omitempty"`
}
