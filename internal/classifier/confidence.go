package classifier

import (
	"fmt"
	"log/slog"

	"github.com/wboerner/archivar/internal/reasoning"
)

// Score thresholds. HIGH requires strictly greater than the cutoff so a
// boundary score lands in review rather than auto-apply.
const (
	thresholdHigh   = 0.80
	thresholdMedium = 0.50
)

// Neutral special-fields score when the proposal sets no special fields.
const specialNeutral = 0.7

// Weights tune the contribution of each confidence signal. They are policy,
// not correctness: only the threshold and null-override invariants are fixed.
type Weights struct {
	Self    float64 `json:"self" toml:"self"`
	Mapping float64 `json:"mapping" toml:"mapping"`
	Fuzzy   float64 `json:"fuzzy" toml:"fuzzy"`
	Special float64 `json:"special" toml:"special"`
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{Self: 0.40, Mapping: 0.30, Fuzzy: 0.15, Special: 0.15}
}

// Action is what the pipeline does with a scored classification.
type Action string

const (
	ActionAutoApply      Action = "auto_apply"
	ActionApplyForReview Action = "apply_review"
	ActionReviewOnly     Action = "review_only"
)

// Evaluation is the confidence evaluator's output with the per-signal
// breakdown kept for review and audit.
type Evaluation struct {
	Score  float64                   `json:"score"`
	Level  reasoning.ConfidenceLevel `json:"level"`
	Action Action                    `json:"action"`

	SelfScore    float64 `json:"self_score"`
	MappingScore float64 `json:"mapping_score"`
	FuzzyScore   float64 `json:"fuzzy_score"`
	SpecialScore float64 `json:"special_score"`

	Reasons []string `json:"reasons"`
}

// Status returns the pipeline-status value the archive receives.
func (e *Evaluation) Status() string {
	if e.Action == ActionAutoApply {
		return "classified"
	}
	return "review"
}

// ShouldApplyFields reports whether resolved fields are written to the
// archive. LOW confidence writes bookkeeping only.
func (e *Evaluation) ShouldApplyFields() bool {
	return e.Action == ActionAutoApply || e.Action == ActionApplyForReview
}

// Evaluator combines the proposal's self-estimate with resolution quality
// into a single score and decision level.
type Evaluator struct {
	weights Weights
	logger  *slog.Logger
}

// NewEvaluator creates an Evaluator with the given signal weights.
func NewEvaluator(weights Weights, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		weights: weights,
		logger:  logger.With("system", "confidence"),
	}
}

// Evaluate scores a resolved classification. The effective mapping ratio
// counts null core fields in the denominator so an undetermined field always
// costs confidence; null fields additionally cap the level at MEDIUM.
func (ev *Evaluator) Evaluate(p *reasoning.Proposal, res *Resolution) Evaluation {
	var reasons []string

	selfScore := p.Confidence.Anchor()
	reasons = append(reasons, fmt.Sprintf("self-reported: %s (%.1f)", p.Confidence, selfScore))

	named := res.NamedFields()
	resolved := res.ResolvedFields()
	nulls := res.NullFieldCount

	var mappingScore float64
	switch {
	case named == 0 && nulls == 0:
		mappingScore = 1.0
		reasons = append(reasons, "mapping: no fields to resolve")
	default:
		mappingScore = float64(resolved) / float64(named+nulls)
		reasons = append(reasons, fmt.Sprintf(
			"mapping: %d/%d resolved, %d null (%.0f%% effective)",
			resolved, named, nulls, mappingScore*100,
		))
	}

	fuzzyScore := res.FuzzyQuality()
	if fuzzyScore < 1.0 {
		reasons = append(reasons, fmt.Sprintf("fuzzy matches averaged %.2f", fuzzyScore))
	}

	specialScore := ev.specialFields(p, &reasons)

	score := ev.weights.Self*selfScore +
		ev.weights.Mapping*mappingScore +
		ev.weights.Fuzzy*fuzzyScore +
		ev.weights.Special*specialScore

	var level reasoning.ConfidenceLevel
	var action Action
	switch {
	case score > thresholdHigh:
		level, action = reasoning.ConfidenceHigh, ActionAutoApply
	case score >= thresholdMedium:
		level, action = reasoning.ConfidenceMedium, ActionApplyForReview
	default:
		level, action = reasoning.ConfidenceLow, ActionReviewOnly
	}

	// A proposal with undetermined core fields is incomplete and must not
	// write archive metadata unsupervised, whatever the numbers say.
	if nulls > 0 && level == reasoning.ConfidenceHigh {
		level, action = reasoning.ConfidenceMedium, ActionApplyForReview
		reasons = append(reasons, fmt.Sprintf("%d null core field(s): downgraded to medium", nulls))
	}

	e := Evaluation{
		Score:        score,
		Level:        level,
		Action:       action,
		SelfScore:    selfScore,
		MappingScore: mappingScore,
		FuzzyScore:   fuzzyScore,
		SpecialScore: specialScore,
		Reasons:      reasons,
	}

	ev.logger.Info("confidence evaluated",
		"score", score,
		"level", level,
		"action", action,
		"self", selfScore,
		"mapping", mappingScore,
		"fuzzy", fuzzyScore,
		"special", specialScore,
	)
	return e
}

// specialFields scores the per-field confidence of person and pagination
// stamp. Absent fields contribute the neutral score.
func (ev *Evaluator) specialFields(p *reasoning.Proposal, reasons *[]string) float64 {
	var scores []float64

	if p.Person != nil && *p.Person != "" {
		score := 0.6
		if p.PersonConfidence != nil {
			score = p.PersonConfidence.Anchor()
		}
		scores = append(scores, score)
		if score < 0.6 {
			*reasons = append(*reasons, fmt.Sprintf("person %q low confidence", *p.Person))
		}
	}

	if p.PaginationStamp != nil {
		score := 0.6
		if p.PaginationStampConfidence != nil {
			score = p.PaginationStampConfidence.Anchor()
		}
		scores = append(scores, score)
		if score < 0.6 {
			*reasons = append(*reasons, fmt.Sprintf("pagination stamp %d low confidence", *p.PaginationStamp))
		}
	}

	if len(scores) == 0 {
		return specialNeutral
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
