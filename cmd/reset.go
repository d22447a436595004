package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/docintake/internal/dedup"
)

var resetCmd = &cobra.Command{
	Use:   "reset <source-key>",
	Short: "Clear a document's processed state so it can be re-ingested",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Dedup.StatePath == "" {
			return fmt.Errorf("dedup.state_path is not configured")
		}

		ded, err := dedup.Open(cfg.Dedup.StatePath)
		if err != nil {
			return err
		}

		if err := ded.Reset(args[0]); err != nil {
			return err
		}
		fmt.Printf("reset %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
