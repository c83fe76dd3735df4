package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/batch"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

var (
	extractDir        string
	extractSchemaPath string
	extractOut        string
	extractWorkers    int
	extractHidden     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Process every PDF in a directory into one workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		api, err := loadSchema(extractSchemaPath)
		if err != nil {
			return err
		}
		out := extractOut
		if out == "" {
			out = filepath.Join(filepath.Dir(filepath.Clean(extractDir)), constants.DefaultExportFilename)
		}

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		ingestor := ingest.NewFSIngestor(!extractHidden, int64(a.Config.Server.MaxUploadMB)<<20, a.Logger)
		runner := batch.NewRunner(a.Processor, a.Exporter, ingestor, extractWorkers, a.Logger)

		sum, err := runner.Run(ctx, extractDir, api)
		if err != nil {
			return err
		}
		for _, o := range sum.Rejected {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s: %v\n", o.Path, o.Err)
		}
		for _, o := range sum.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", o.Path, o.Err)
			}
		}
		if err := runner.WriteWorkbook(ctx, sum, api, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d invoices extracted (%d unreadable, %d duplicates skipped) -> %s\n",
			sum.Succeeded, sum.Total(), len(sum.Rejected), sum.Stats.Deduplicated, out)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractDir, "dir", "", "directory of PDF invoices (required)")
	extractCmd.Flags().StringVar(&extractSchemaPath, "schema", "", "API schema JSON file (default: built-in invoice schema)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output XLSX path (default: extracted_data.xlsx next to --dir)")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 4, "files processed concurrently")
	extractCmd.Flags().BoolVar(&extractHidden, "include-hidden", false, "also process hidden files and directories")
	_ = extractCmd.MarkFlagRequired("dir")
}
