package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/store"
)

var (
	statusJSON   bool
	statusFilter string
	statusLimit  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent documents and their processing state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		docs, err := st.ListDocuments(ctx, store.DocumentFilter{
			Status: model.DocumentStatus(statusFilter),
			Limit:  statusLimit,
		})
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		}

		if len(docs) == 0 {
			fmt.Println("no documents")
			return nil
		}
		for _, d := range docs {
			line := fmt.Sprintf("%s  %-10s  %3d pages  %s", d.ID, d.Status, d.PageCount, d.SourceKey)
			if d.Error != "" {
				line += "  (" + d.Error + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (processing|completed|failed)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 50, "max documents to show")
	rootCmd.AddCommand(statusCmd)
}
