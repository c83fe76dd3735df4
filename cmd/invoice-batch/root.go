package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

var (
	cfgFile string
	inmem   bool
)

var rootCmd = &cobra.Command{
	Use:   "invoice-batch",
	Short: "Extract structured invoice data from PDFs into spreadsheets",
	Long: `invoice-batch parses PDF invoices, extracts the fields of a schema with an
LLM and writes the results as an XLSX workbook with one sheet per invoice.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML/JSON config file")
	rootCmd.PersistentFlags().BoolVar(&inmem, "inmem", false, "record jobs in an in-memory SQLite database")

	rootCmd.AddCommand(extractCmd, watchCmd, schemaCmd)
}

// setup loads config, builds the logger and wires the pipeline.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := common.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if inmem {
		cfg.Database.DSN = ":memory:"
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, logger)
}

// loadSchema reads an API schema file, or returns the default schema for "".
func loadSchema(path string) (entity.APISchema, error) {
	if path == "" {
		return schema.DefaultAPI(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.APISchema{}, err
	}
	var api entity.APISchema
	if err := json.Unmarshal(raw, &api); err != nil {
		return entity.APISchema{}, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if err := schema.ValidateAPI(api); err != nil {
		return entity.APISchema{}, err
	}
	return api, nil
}
