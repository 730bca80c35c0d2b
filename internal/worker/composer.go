package worker

import (
	"context"

	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/upstream"
)

// Composer writes the final article from validated facts. It only runs
// after the validator approved the research report.
type Composer struct {
	upstream upstream.Client
	bus      *event.Bus
	logger   *logging.Logger
}

// NewComposer creates the composition stage.
func NewComposer(up upstream.Client, bus *event.Bus, logger *logging.Logger) *Composer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Composer{
		upstream: up,
		bus:      bus,
		logger:   logger.WithStage(StageComposer),
	}
}

// Name returns the stage name.
func (c *Composer) Name() string { return StageComposer }

// Invoke writes the article from in.Research and in.Validation.
func (c *Composer) Invoke(ctx context.Context, in Input) (string, error) {
	if in.Research == "" || in.Validation == "" {
		return "", errors.NewValidationError("validation", "composer requires research and an approved audit")
	}

	req := upstream.ChatRequest{
		Temperature: composerTemperature,
		Messages: []upstream.Message{
			{Role: upstream.RoleSystem, Content: composerSystemPrompt()},
			{Role: upstream.RoleUser, Content: composerUserPrompt(in.Topic, in.Research, in.Validation)},
		},
	}

	resp, err := c.upstream.ChatStream(ctx, req, func(delta string) error {
		c.bus.Publish(event.NewStageThinking(in.SessionID, StageComposer, delta))
		return nil
	})
	if err != nil {
		return "", errors.NewPipelineError("composition failed", err).
			WithSessionID(in.SessionID).
			WithStage(StageComposer)
	}

	c.logger.WithSession(in.SessionID).Info("article composed",
		"chars", len(resp.Content),
		"attempts", resp.Attempts)
	return resp.Content, nil
}
