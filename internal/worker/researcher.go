package worker

import (
	"context"
	"fmt"

	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/search"
	"github.com/jmcortes/newswire/internal/upstream"
)

// newsSearchTool is the tool name reported on the event stream.
const newsSearchTool = "news_search"

// Researcher gathers sourced material for a topic. It is the only stage
// with access to the outside world: every invocation starts with a news
// search, and the model may only reason over those results.
type Researcher struct {
	upstream upstream.Client
	search   search.Client
	bus      *event.Bus
	logger   *logging.Logger
}

// NewResearcher creates the research stage.
func NewResearcher(up upstream.Client, sc search.Client, bus *event.Bus, logger *logging.Logger) *Researcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Researcher{
		upstream: up,
		search:   sc,
		bus:      bus,
		logger:   logger.WithStage(StageResearcher),
	}
}

// Name returns the stage name.
func (r *Researcher) Name() string { return StageResearcher }

// Invoke searches for the topic and produces a sourced research report.
// Validator feedback from a rejected cycle, when present, reshapes the
// report without altering the topic itself.
func (r *Researcher) Invoke(ctx context.Context, in Input) (string, error) {
	log := r.logger.WithSession(in.SessionID)

	r.bus.Publish(event.NewToolStart(in.SessionID, StageResearcher, newsSearchTool, in.Topic))
	results, err := r.search.Search(ctx, in.Topic, 0)
	if err != nil {
		r.bus.Publish(event.NewToolEnd(in.SessionID, StageResearcher, newsSearchTool, "error: "+err.Error()))
		return "", errors.NewPipelineError("news search failed", err).
			WithSessionID(in.SessionID).
			WithStage(StageResearcher)
	}

	summary := fmt.Sprintf("total=%d deep=%d api=%d", results.TotalResults, results.DeepCount, results.APICount)
	r.bus.Publish(event.NewToolEnd(in.SessionID, StageResearcher, newsSearchTool, summary))
	if results.DeepCount == 0 && results.APICount > 0 {
		// Local scrapers did not respond in time; the report will lean on
		// snippets only.
		log.Warn("search returned api-tier sources only", "topic", in.Topic)
	}

	req := upstream.ChatRequest{
		Temperature: researcherTemperature,
		Messages: []upstream.Message{
			{Role: upstream.RoleSystem, Content: researcherSystemPrompt(in.AsOf)},
			{Role: upstream.RoleUser, Content: researcherUserPrompt(in.Topic, in.Feedback, results.JSON())},
		},
	}

	resp, err := r.upstream.ChatStream(ctx, req, func(delta string) error {
		r.bus.Publish(event.NewStageThinking(in.SessionID, StageResearcher, delta))
		return nil
	})
	if err != nil {
		return "", errors.NewPipelineError("research generation failed", err).
			WithSessionID(in.SessionID).
			WithStage(StageResearcher)
	}

	log.Info("research report produced",
		"chars", len(resp.Content),
		"attempts", resp.Attempts,
		"sources", results.TotalResults)
	return resp.Content, nil
}
