package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/docintake/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "docintake",
	Short: "Scanned-document intake and identity resolution pipeline",
	Long:  "Ingests scanned multi-page financial documents, ties each page to the account it belongs to, extracts structured fields per page, and tracks field-level provenance through human review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
