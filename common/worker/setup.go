package worker

import (
	"net/http"

	"github.com/lyzr/colorsort/common/clients"
	"github.com/lyzr/colorsort/common/config"
	"github.com/lyzr/colorsort/common/logger"
	"github.com/lyzr/colorsort/common/ranker"
	"github.com/lyzr/colorsort/common/repository"
	"github.com/lyzr/colorsort/common/thumbnails"
)

// NewRanker builds the ranker selected by RANKER_TYPE
func NewRanker(cfg *config.Config, log *logger.Logger) ranker.Ranker {
	switch cfg.Ranker.Type {
	case "script":
		return ranker.NewScriptRanker(cfg.Ranker.Python, cfg.Ranker.Script, "", log)
	default:
		return ranker.NewNativeRanker(cfg.Ranker.DecodeConcurrency)
	}
}

// NewComputeSequenceHandlerFromConfig wires the compute handler from configuration
func NewComputeSequenceHandlerFromConfig(
	cfg *config.Config,
	store repository.SequenceStore,
	catalog repository.ImageCatalog,
	log *logger.Logger,
) *ComputeSequenceHandler {
	client := clients.NewHTTPClient(&http.Client{Timeout: cfg.Thumbnails.FetchTimeout}, log)

	return NewComputeSequenceHandler(
		store,
		catalog,
		thumbnails.NewResolver(cfg.Thumbnails.Prefix, cfg.Thumbnails.Format),
		thumbnails.NewFileCache(client, "", cfg.Ranker.DecodeConcurrency, log),
		NewRanker(cfg, log),
		cfg.Ranker.Timeout,
		log,
	)
}

// NewComputeDispatcher returns a dispatcher that routes compute tasks to h
func NewComputeDispatcher(h *ComputeSequenceHandler, log *logger.Logger) *Dispatcher {
	d := NewDispatcher(log)
	d.Register(KindComputeSequence, h.HandleMessage)
	return d
}

// NewPendingSweeperFromConfig wires the stale pending sweeper from configuration
func NewPendingSweeperFromConfig(cfg *config.Config, store StaleStore, log *logger.Logger) *PendingSweeper {
	return NewPendingSweeper(store, cfg.Queue.PendingTimeout, cfg.Queue.SweepInterval, log)
}
