package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

var schemaTree bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema helpers",
}

var schemaDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in invoice schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if schemaTree {
			return enc.Encode(schema.Default())
		}
		return enc.Encode(schema.DefaultAPI())
	},
}

func init() {
	schemaDefaultCmd.Flags().BoolVar(&schemaTree, "tree", false, "print the field tree instead of the root/items form")
	schemaCmd.AddCommand(schemaDefaultCmd)
}
