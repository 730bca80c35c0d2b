// Package orchestrator drives a generation session through the staged
// pipeline: research, validation, and composition, with bounded
// backtracking when the validator rejects a research report.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/markdown"
	"github.com/jmcortes/newswire/internal/registry"
	"github.com/jmcortes/newswire/internal/util"
	"github.com/jmcortes/newswire/internal/worker"
)

// CycleRecord captures one research/validation cycle for the run history.
type CycleRecord struct {
	Iteration int     `json:"iteration"`
	Verdict   string  `json:"verdict"`
	Feedback  string  `json:"feedback,omitempty"`
	Elapsed   float64 `json:"elapsed_secs"`
}

// Result is the outcome of a completed pipeline run.
type Result struct {
	Article    string        `json:"article"`
	Iterations int           `json:"iterations"`
	Cycles     []CycleRecord `json:"cycles"`
	Elapsed    time.Duration `json:"-"`
}

// Pipeline runs sessions through the three stages.
type Pipeline struct {
	registry   *registry.Registry
	bus        *event.Bus
	researcher worker.Worker
	validator  worker.Worker
	composer   worker.Worker
	cfg        config.PipelineConfig
	logger     *logging.Logger

	now func() time.Time
}

// New creates a Pipeline over the given stages.
func New(
	reg *registry.Registry,
	bus *event.Bus,
	researcher, validator, composer worker.Worker,
	cfg config.PipelineConfig,
	logger *logging.Logger,
) *Pipeline {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Pipeline{
		registry:   reg,
		bus:        bus,
		researcher: researcher,
		validator:  validator,
		composer:   composer,
		cfg:        cfg,
		logger:     logger.WithComponent("pipeline"),
		now:        time.Now,
	}
}

// Run executes the full pipeline for an existing session. The session
// transitions to running immediately and reaches exactly one terminal
// state before Run returns; every stage transition is published on the
// session event topic with the terminal event last.
func (p *Pipeline) Run(ctx context.Context, sessionID string) (Result, error) {
	sess, err := p.registry.Get(sessionID)
	if err != nil {
		return Result{}, err
	}
	if err := p.registry.MarkRunning(sessionID); err != nil {
		return Result{}, err
	}

	log := p.logger.WithSession(sessionID)
	start := p.now()
	p.bus.Publish(event.NewSessionStart(sessionID, sess.Topic))
	log.Info("session started", "topic", sess.Topic)

	in := worker.Input{
		SessionID: sessionID,
		Topic:     sess.Topic,
		AsOf:      start,
	}

	var cycles []CycleRecord
	for iteration := 1; iteration <= p.cfg.MaxIterations; iteration++ {
		in.Iteration = iteration
		cycleStart := p.now()

		research, err := p.runStage(ctx, p.researcher, in)
		if err != nil {
			return Result{}, p.fail(sessionID, worker.StageResearcher, err)
		}
		in.Research = research

		audit, err := p.runStage(ctx, p.validator, in)
		if err != nil {
			return Result{}, p.fail(sessionID, worker.StageValidator, err)
		}

		verdict := ParseVerdict(audit)
		record := CycleRecord{
			Iteration: iteration,
			Verdict:   verdict.String(),
			Elapsed:   p.now().Sub(cycleStart).Seconds(),
		}

		if verdict.Approved() {
			cycles = append(cycles, record)
			in.Validation = audit

			article, err := p.runStage(ctx, p.composer, in)
			if err != nil {
				return Result{}, p.fail(sessionID, worker.StageComposer, err)
			}
			article = formatArticle(article, log)

			if err := p.registry.Complete(sessionID, article, iteration); err != nil {
				return Result{}, p.fail(sessionID, worker.StageComposer, err)
			}
			elapsed := p.now().Sub(start)
			p.bus.Publish(event.NewSessionFinish(sessionID, iteration, elapsed))
			log.Info("session completed",
				"iterations", iteration,
				"elapsed_secs", elapsed.Seconds(),
				"article_chars", len(article))
			return Result{
				Article:    article,
				Iterations: iteration,
				Cycles:     cycles,
				Elapsed:    elapsed,
			}, nil
		}

		// Non-approval: carry the audit back to research as structured
		// feedback. The topic itself never changes.
		feedback := util.Excerpt(audit, p.cfg.FeedbackExcerptLen)
		record.Feedback = feedback
		cycles = append(cycles, record)
		in.Feedback = feedback
		in.Research = ""
		in.Validation = ""

		p.bus.Publish(event.NewPipelineBacktrack(sessionID, iteration, verdict.String(), feedback))
		if verdict == VerdictAmbiguous {
			log.Warn("audit verdict unreadable, treating as rejection",
				"iteration", iteration,
				"reason", errors.ErrVerdictUnparsed.Error())
		} else {
			log.Info("research rejected, backtracking", "iteration", iteration)
		}
	}

	err = fmt.Errorf("%w after %d iterations; last feedback: %s",
		errors.ErrIterationsExhausted, p.cfg.MaxIterations, in.Feedback)
	return Result{Cycles: cycles}, p.fail(sessionID, worker.StageValidator, err)
}

// runStage invokes one stage, bracketing it with start/finish events and
// applying the per-stage timeout when configured.
func (p *Pipeline) runStage(ctx context.Context, w worker.Worker, in worker.Input) (string, error) {
	if timeout := p.cfg.StageTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p.bus.Publish(event.NewStageStart(in.SessionID, w.Name(), in.Iteration))
	out, err := w.Invoke(ctx, in)
	if err != nil {
		return "", err
	}
	p.bus.Publish(event.NewStageFinish(in.SessionID, w.Name(), in.Iteration, out))
	return out, nil
}

// fail records the terminal failure exactly once and publishes the
// terminal event last.
func (p *Pipeline) fail(sessionID, stage string, cause error) error {
	if err := p.registry.Fail(sessionID, cause.Error()); err != nil {
		p.logger.WithSession(sessionID).Error("recording failure", "error", err)
	}
	p.bus.Publish(event.NewSessionError(sessionID, stage, cause.Error()))
	p.logger.WithSession(sessionID).Error("session failed", "stage", stage, "error", cause)
	return cause
}

// formatArticle post-processes the composed markdown. The formatter is
// best-effort: if it panics or produces nothing, the raw article is used.
func formatArticle(raw string, log *logging.Logger) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("markdown formatter panicked, using raw article", "panic", fmt.Sprint(r))
			out = raw
		}
	}()

	formatted := markdown.FormatArticle(raw)
	if formatted == "" {
		return raw
	}
	return formatted
}
