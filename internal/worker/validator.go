package worker

import (
	"context"

	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/upstream"
)

// Validator audits a research report for bias, unsupported claims and
// inconsistencies, returning a report that opens with an explicit
// verdict line.
type Validator struct {
	upstream upstream.Client
	bus      *event.Bus
	logger   *logging.Logger
}

// NewValidator creates the validation stage.
func NewValidator(up upstream.Client, bus *event.Bus, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Validator{
		upstream: up,
		bus:      bus,
		logger:   logger.WithStage(StageValidator),
	}
}

// Name returns the stage name.
func (v *Validator) Name() string { return StageValidator }

// Invoke audits the research report in in.Research.
func (v *Validator) Invoke(ctx context.Context, in Input) (string, error) {
	if in.Research == "" {
		return "", errors.NewValidationError("research", "validator requires a research report")
	}

	req := upstream.ChatRequest{
		Temperature: validatorTemperature,
		Messages: []upstream.Message{
			{Role: upstream.RoleSystem, Content: validatorSystemPrompt(in.AsOf)},
			{Role: upstream.RoleUser, Content: validatorUserPrompt(in.Topic, in.Research)},
		},
	}

	resp, err := v.upstream.ChatStream(ctx, req, func(delta string) error {
		v.bus.Publish(event.NewStageThinking(in.SessionID, StageValidator, delta))
		return nil
	})
	if err != nil {
		return "", errors.NewPipelineError("validation failed", err).
			WithSessionID(in.SessionID).
			WithStage(StageValidator)
	}

	v.logger.WithSession(in.SessionID).Info("audit produced",
		"chars", len(resp.Content),
		"attempts", resp.Attempts)
	return resp.Content, nil
}
