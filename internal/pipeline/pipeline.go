package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/cache"
	"github.com/ppiankov/grantscout/internal/catalog"
	"github.com/ppiankov/grantscout/internal/llm"
	"github.com/ppiankov/grantscout/internal/mail"
	"github.com/ppiankov/grantscout/internal/metrics"
	"github.com/ppiankov/grantscout/internal/model"
	"github.com/ppiankov/grantscout/internal/planner"
	"github.com/ppiankov/grantscout/internal/reply"
	"github.com/ppiankov/grantscout/internal/score"
	"github.com/ppiankov/grantscout/internal/search"
	"github.com/ppiankov/grantscout/internal/store"
)

// Pipeline is the wired application: store, search, scoring, mail and the
// service flows on top of them
type Pipeline struct {
	Service   *Service
	Discovery *Discovery
	Store     *store.Store
	Engine    *score.Engine
	Search    *search.Aggregator
	Sender    *mail.SMTPSender

	config *model.Config
	logger *zap.Logger
}

// NewPipeline wires every component from cfg. A language model that cannot be
// initialized is reported and the pipeline runs offline.
func NewPipeline(ctx context.Context, cfg *model.Config, cat *catalog.Catalog, logger *zap.Logger, m *metrics.Metrics) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.Open(cfg.Store.Path, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	llmConfig := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
	llmConfig.Logger = logger.Named("llm")
	provider, err := llm.NewProvider(llmConfig)
	if err != nil {
		logger.Warn("Failed to initialize LLM provider, scoring offline", zap.Error(err))
		provider = nil
	}
	engine := score.NewEngine(provider, cfg.LLM.BatchSize, logger.Named("score"), m)

	var responses cache.Cache
	if cfg.Cache.Enabled {
		responses = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}
	aggregator := search.NewFromConfig(ctx, cfg, search.Options{
		Logger:   logger.Named("search"),
		Metrics:  m,
		Cache:    responses,
		CacheTTL: cfg.Cache.DiskTTL,
	})

	// without a model the planner falls back to template expansion silently
	var expander planner.Expander
	if engine.Available() {
		expander = engine
	}
	plan := planner.New(planner.ConfigFromModel(cfg.Search), cat.Sources, expander, logger.Named("planner"))

	discovery := NewDiscovery(DiscoveryConfig{
		MaxResultsPerQuery: cfg.Search.MaxResultsPerQuery,
		Workers:            cfg.Concurrency.Workers,
		BatchSize:          cfg.LLM.BatchSize,
	}, plan, aggregator, engine, st, logger.Named("discovery"), m)

	sender := mail.NewSMTPSender(cfg.Email, logger.Named("smtp"))
	poller := mail.NewIMAPPoller(cfg.Email, logger.Named("imap"))
	router := reply.NewRouter(st, engine, discovery, cat, sender, logger.Named("reply"), m)

	service := NewService(ServiceDeps{
		Catalog:   cat,
		Discovery: discovery,
		Store:     st,
		Router:    router,
		Sender:    sender,
		Poller:    poller,
		Digest:    cfg.Digest,
		Logger:    logger.Named("service"),
		Metrics:   m,
	})

	logger.Debug("Pipeline ready",
		zap.String("search", aggregator.Name()),
		zap.Bool("llm", engine.Available()),
		zap.Int("projects", len(cat.Projects)))

	return &Pipeline{
		Service:   service,
		Discovery: discovery,
		Store:     st,
		Engine:    engine,
		Search:    aggregator,
		Sender:    sender,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Close releases the store
func (p *Pipeline) Close() error {
	return p.Store.Close()
}

// RenderReport writes snap to outPath, as JSON when the path ends in .json
// and as digest text otherwise. An empty path prints the text to w.
func (p *Pipeline) RenderReport(snap Snapshot, outPath string, w io.Writer) error {
	if outPath == "" {
		_, err := fmt.Fprintln(w, snap.Text())
		return err
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(outPath), ".json") {
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		data = append(b, '\n')
	} else {
		data = []byte(snap.Text() + "\n")
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	p.logger.Info("Report written", zap.String("path", outPath), zap.Int("results", len(snap.Results)))
	return nil
}
