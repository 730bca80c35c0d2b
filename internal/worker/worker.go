// Package worker implements the pipeline stages that produce an article.
//
// Three stages cooperate: the researcher gathers sourced material through
// the news search tool, the validator audits it for bias and unsupported
// claims, and the composer writes the final article from validated facts
// only. Each stage drives the upstream model with its own temperature
// profile and publishes its progress on the session event stream.
package worker

import (
	"context"
	"time"
)

// Stage names.
const (
	StageResearcher = "researcher"
	StageValidator  = "validator"
	StageComposer   = "composer"
)

// Temperature profiles per stage. Research favors precision, validation
// balances rigor and flexibility, composition favors expressive prose.
const (
	researcherTemperature = 0.3
	validatorTemperature  = 0.5
	composerTemperature   = 0.8
)

// Input carries everything a stage needs for one invocation.
type Input struct {
	// SessionID identifies the session for event publication.
	SessionID string
	// Topic is the immutable subject of the article.
	Topic string
	// Feedback is the validator criticism carried into a re-research
	// cycle. Empty on the first iteration.
	Feedback string
	// AsOf anchors the temporal context: material older than two years
	// before this date is out of scope.
	AsOf time.Time
	// Iteration is the current cycle number, starting at 1.
	Iteration int
	// Research is the researcher report, set for the validator and
	// composer stages.
	Research string
	// Validation is the approved audit, set for the composer stage.
	Validation string
}

// Worker is one pipeline stage.
type Worker interface {
	// Name returns the stage name.
	Name() string
	// Invoke runs the stage and returns its text output.
	Invoke(ctx context.Context, in Input) (string, error)
}
