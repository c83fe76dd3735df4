// Package app wires configuration into the extraction pipeline shared by the
// daemon and the batch CLI.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/parse/llamaparse"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repository.DB
	Jobs      repository.ExtractJobRepository
	Processor *pipeline.Processor
	Exporter  *export.Service
}

// Build opens the database, then assembles the text extractor chain, the LLM
// client and the processor. Callers own Close.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		db.Close(logger)
		return nil, common.WrapError(err, "database health")
	}
	jobs := repository.NewExtractJobRepository(db, logger)

	llmClient := openai.NewClient(openai.Config{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		Timeout:         cfg.LLM.Timeout,
		MaxRetries:      cfg.LLM.MaxRetries,
		LenientOptional: cfg.LLM.LenientOptional,
	}, logger)

	proc := pipeline.NewProcessor(logger, TextExtractor(cfg, logger), llmClient, jobs, llmClient.Model())
	logger.Info("app.ready",
		"parser", cfg.Parser.Provider,
		"parser_fallback", cfg.Parser.Fallback,
		"model", llmClient.Model(),
		"db_dialect", db.Dialect,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Jobs:      jobs,
		Processor: proc,
		Exporter:  export.NewService(jobs, logger),
	}, nil
}

// TextExtractor picks the document parser for cfg: LlamaParse, optionally
// backed by the local extractor, or the local extractor alone.
func TextExtractor(cfg *common.Config, logger *slog.Logger) extract.TextExtractor {
	local := extract.NewLocalExtractor(ocr.NewExtractor(ocr.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		MaxPages:  cfg.OCR.MaxPages,
	}, logger))
	if cfg.Parser.Provider == common.ParserLocal {
		return local
	}

	remote := llamaparse.NewClient(llamaparse.Config{
		APIKey:       cfg.Parser.APIKey,
		BaseURL:      cfg.Parser.BaseURL,
		PollInterval: cfg.Parser.PollInterval,
		Timeout:      cfg.Parser.Timeout,
	}, logger)
	if !cfg.Parser.Fallback {
		return remote
	}
	return extract.NewFallback(remote, local, logger)
}

func (a *App) Close() {
	a.DB.Close(a.Logger)
}

// Ping reports database reachability for health endpoints.
func (a *App) Ping(ctx context.Context) error {
	return a.DB.HealthCheck(ctx, 2*time.Second)
}
