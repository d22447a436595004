package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/docintake/internal/dedup"
	"github.com/sells-group/docintake/internal/extract"
	"github.com/sells-group/docintake/internal/fetcher"
	"github.com/sells-group/docintake/internal/ingest"
	"github.com/sells-group/docintake/internal/monitoring"
	"github.com/sells-group/docintake/internal/ocr"
	"github.com/sells-group/docintake/internal/pagecache"
	"github.com/sells-group/docintake/internal/review"
	"github.com/sells-group/docintake/internal/roster"
	"github.com/sells-group/docintake/internal/store"
)

// pipelineEnv holds everything the ingest/batch/serve commands need.
type pipelineEnv struct {
	Store    store.Store
	Dedup    *dedup.Store
	Cache    *pagecache.Cache
	Fetcher  *fetcher.Fetcher
	Pipeline *ingest.Pipeline
	Monitor  *monitoring.Collector
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the registry and dedup state, builds the OCR and
// extraction clients, and wires the pipeline. Callers should defer
// env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("ingest"); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	ded, err := dedup.Open(cfg.Dedup.StatePath)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "open dedup state")
	}

	pages, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	zap.L().Info("ocr provider ready", zap.String("provider", cfg.OCR.Provider))

	extractor := extract.NewAnthropicExtractor(
		extract.NewClient(cfg.Extract.AnthropicKey),
		cfg.Extract.Model,
		cfg.Extract.MaxTokens,
		cfg.Extract.RequestsPerSec,
	)

	cache := pagecache.New(pagecache.NewFSBlob(cfg.Cache.Dir))
	fetch := fetcher.New(cfg.Intake)

	env := &pipelineEnv{
		Store:   st,
		Dedup:   ded,
		Cache:   cache,
		Fetcher: fetch,
		Pipeline: &ingest.Pipeline{
			Fetcher:            fetch,
			OCR:                pages,
			Roster:             roster.NewStoreProvider(st),
			Extractor:          extractor,
			Cache:              cache,
			Store:              st,
			Dedup:              ded,
			Review:             review.New(cfg.Review),
			MaxConcurrentPages: cfg.Extract.MaxConcurrent,
		},
		Monitor: monitoring.NewCollector(st, ded),
	}
	return env, nil
}

// initServeEnv is the lighter wiring for the read/edit API: no OCR or
// extraction clients, just the registry, cache and dedup state.
func initServeEnv(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("serve"); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	var ded *dedup.Store
	if cfg.Dedup.StatePath != "" {
		ded, err = dedup.Open(cfg.Dedup.StatePath)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "open dedup state")
		}
	}

	return &pipelineEnv{
		Store:   st,
		Dedup:   ded,
		Cache:   pagecache.New(pagecache.NewFSBlob(cfg.Cache.Dir)),
		Monitor: monitoring.NewCollector(st, ded),
	}, nil
}
