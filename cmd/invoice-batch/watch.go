package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/batch"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

var (
	watchDir        string
	watchSchemaPath string
	watchOutDir     string
	watchExisting   bool
	watchDebounce   time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and write a workbook for every new PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		api, err := loadSchema(watchSchemaPath)
		if err != nil {
			return err
		}
		outDir := watchOutDir
		if outDir == "" {
			outDir = watchDir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ingestor := ingest.NewFSIngestor(true, int64(a.Config.Server.MaxUploadMB)<<20, a.Logger)
		runner := batch.NewRunner(a.Processor, a.Exporter, ingestor, 1, a.Logger)

		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{watchDir},
			InitialScan: watchExisting,
			Debounce:    watchDebounce,
			SkipHidden:  true,
			Logger:      a.Logger,
		})
		if err != nil {
			return err
		}
		a.Logger.Info("watch.started", "dir", watchDir, "out_dir", outDir)

		consumeWatch(ctx, events, errs, a.Logger, func(path string) {
			out, err := runner.ProcessFile(ctx, path, api, outDir)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", path, err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", path, out)
		})
		return nil
	},
}

// consumeWatch hands every settled path to handle until ctx ends or events closes.
func consumeWatch(ctx context.Context, events <-chan string, errs <-chan error, logger *slog.Logger, handle func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		case path, ok := <-events:
			if !ok {
				return
			}
			handle(path)
		}
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory to watch (required)")
	watchCmd.Flags().StringVar(&watchSchemaPath, "schema", "", "API schema JSON file (default: built-in invoice schema)")
	watchCmd.Flags().StringVar(&watchOutDir, "out-dir", "", "where workbooks are written (default: --dir)")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also process PDFs already in the directory")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "wait for writes to settle")
	_ = watchCmd.MarkFlagRequired("dir")
}
