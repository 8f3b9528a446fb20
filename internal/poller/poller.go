// Package poller drives the classification pipeline: it periodically
// discovers trigger-tagged documents and processes them strictly in
// discovery order, one at a time.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/pipeline"
	"github.com/wboerner/archivar/internal/reasoning"
)

// Source lists the documents awaiting classification.
type Source interface {
	DocumentsByTag(ctx context.Context, tagID int) ([]archive.Document, error)
}

// Config controls poll timing and spend limits.
type Config struct {
	Interval         time.Duration
	DocumentDelay    time.Duration
	MonthlyBudgetUSD float64
}

// Poller runs the discovery/processing loop. One Poller serializes all
// pipeline executions, including manual triggers, through a single mutex so
// no two documents are ever processed concurrently.
type Poller struct {
	rt      *pipeline.Runtime
	source  Source
	cfg     Config
	logger  *slog.Logger
	limiter *rate.Limiter
	tracker *tracker
	runMu   chan struct{}
}

// New creates a Poller over the given pipeline runtime.
func New(rt *pipeline.Runtime, source Source, cfg Config, logger *slog.Logger) *Poller {
	p := &Poller{
		rt:      rt,
		source:  source,
		cfg:     cfg,
		logger:  logger.With("system", "poller"),
		limiter: rate.NewLimiter(rate.Every(cfg.DocumentDelay), 1),
		tracker: newTracker(),
		runMu:   make(chan struct{}, 1),
	}
	p.runMu <- struct{}{}
	return p
}

// Status returns a snapshot of the poller's state and counters.
func (p *Poller) Status() Status {
	return p.tracker.snapshot()
}

// Pause stops new cycles from starting. The in-flight document, if any,
// finishes first.
func (p *Poller) Pause(reason string) {
	p.tracker.pause(reason)
	p.logger.Info("poller paused", "reason", reason)
}

// Resume re-enables polling after a pause.
func (p *Poller) Resume() {
	if !p.tracker.paused() {
		return
	}
	p.tracker.setState(StateIdle)
	p.logger.Info("poller resumed")
}

// Run executes cycles until the context is cancelled. It runs one cycle
// immediately, then one per interval tick.
func (p *Poller) Run(ctx context.Context) {
	p.tracker.setState(StateIdle)
	defer p.tracker.setState(StateStopped)

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"document_delay", p.cfg.DocumentDelay,
		"monthly_budget_usd", p.cfg.MonthlyBudgetUSD,
	)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// Process runs one document through the pipeline on demand, serialized with
// the polling loop. forceModel overrides the routing decision when non-empty.
func (p *Poller) Process(ctx context.Context, documentID int, forceModel string) (*pipeline.Result, error) {
	select {
	case <-p.runMu:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { p.runMu <- struct{}{} }()

	result, err := pipeline.Process(ctx, p.rt, documentID, forceModel)
	if err != nil {
		return nil, err
	}

	p.tracker.documentDone(result.Status)
	return result, nil
}

// cycle discovers and processes pending documents in discovery order. A
// transient reasoning overload aborts the remainder of the cycle: documents
// already handled keep their results, the rest stay untouched for the next
// cycle.
func (p *Poller) cycle(ctx context.Context) {
	if p.tracker.paused() {
		return
	}

	select {
	case <-p.runMu:
	case <-ctx.Done():
		return
	}
	defer func() { p.runMu <- struct{}{} }()

	p.tracker.cycleStarted()

	docs, err := p.source.DocumentsByTag(ctx, p.rt.Wellknown.TriggerTag.ID)
	if err != nil {
		p.logger.ErrorContext(ctx, "document discovery failed", "error", err)
		p.tracker.cycleFinished(0, fmt.Errorf("discover documents: %w", err))
		return
	}

	if len(docs) == 0 {
		p.tracker.cycleFinished(0, nil)
		return
	}

	p.logger.InfoContext(ctx, "cycle started", "pending", len(docs))

	var cycleErr error
	handled := 0

	for _, doc := range docs {
		if ctx.Err() != nil {
			cycleErr = ctx.Err()
			break
		}
		if p.tracker.paused() {
			break
		}
		if !p.withinBudget(ctx) {
			break
		}

		if err := p.limiter.Wait(ctx); err != nil {
			cycleErr = err
			break
		}

		result, err := pipeline.Process(ctx, p.rt, doc.ID, "")
		if err != nil {
			if reasoning.IsOverloaded(err) {
				p.logger.WarnContext(ctx, "reasoning service overloaded, aborting cycle",
					"document_id", doc.ID,
					"handled", handled,
					"remaining", len(docs)-handled,
				)
				cycleErr = err
				break
			}

			// Not-found means the document vanished between discovery and
			// processing; anything else unexpected still moves the cycle on.
			p.logger.WarnContext(ctx, "document processing failed",
				"document_id", doc.ID, "error", err,
			)
			handled++
			continue
		}

		p.tracker.documentDone(result.Status)
		handled++

		p.logger.InfoContext(ctx, "document processed",
			"document_id", doc.ID,
			"status", result.Status,
			"level", result.Level,
			"cost_usd", result.CostUSD,
		)
	}

	p.tracker.cycleFinished(handled, cycleErr)
	p.logger.InfoContext(ctx, "cycle finished", "handled", handled)
}

// withinBudget checks the month's accumulated spend against the configured
// limit and pauses the poller when exhausted. A zero limit disables the
// gate; a failed lookup logs and lets processing continue.
func (p *Poller) withinBudget(ctx context.Context) bool {
	if p.cfg.MonthlyBudgetUSD <= 0 {
		return true
	}

	summary, err := p.rt.Outcomes.MonthlyCost(ctx, "")
	if err != nil {
		p.logger.WarnContext(ctx, "budget check failed, continuing", "error", err)
		return true
	}

	if summary.TotalUSD >= p.cfg.MonthlyBudgetUSD {
		p.Pause(fmt.Sprintf("monthly budget exhausted: %.2f of %.2f USD",
			summary.TotalUSD, p.cfg.MonthlyBudgetUSD))
		return false
	}
	return true
}
