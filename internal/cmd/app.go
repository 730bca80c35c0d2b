package cmd

import (
	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/orchestrator"
	"github.com/jmcortes/newswire/internal/registry"
	"github.com/jmcortes/newswire/internal/search"
	"github.com/jmcortes/newswire/internal/upstream"
	"github.com/jmcortes/newswire/internal/worker"
)

// buildPipeline assembles the session registry, the event bus and the
// staged pipeline from configuration.
func buildPipeline(cfg *config.Config, logger *logging.Logger) (*registry.Registry, *event.Bus, *orchestrator.Pipeline) {
	reg := registry.New()
	bus := event.NewBus(cfg.Pipeline.EventBufferSize, logger)

	up := upstream.NewHTTPClient(cfg.Upstream, cfg.Retry, logger)
	sc := search.NewHTTPClient(cfg.Search, logger)

	pipe := orchestrator.New(
		reg,
		bus,
		worker.NewResearcher(up, sc, bus, logger),
		worker.NewValidator(up, bus, logger),
		worker.NewComposer(up, bus, logger),
		cfg.Pipeline,
		logger,
	)
	return reg, bus, pipe
}
