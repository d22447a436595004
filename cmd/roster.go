package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/roster"
	"github.com/sells-group/docintake/internal/store"
)

var (
	rosterCharset string
	rosterBulk    bool
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manage account/holder rosters",
}

var rosterImportCmd = &cobra.Command{
	Use:   "import <document-id> <roster.xlsx|roster.csv>",
	Short: "Import a roster file for a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		documentID, path := args[0], args[1]

		if err := cfg.Validate("roster"); err != nil {
			return err
		}
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := roster.Read(path, rosterCharset)
		if err != nil {
			return err
		}

		var accounts []model.Account
		if rosterBulk {
			ps, ok := st.(*store.PostgresStore)
			if !ok {
				return fmt.Errorf("--bulk requires the postgres store driver")
			}
			accounts, err = roster.GroupRows(rows)
			if err != nil {
				return err
			}
			if err := roster.BulkLoad(ctx, ps.Pool(), documentID, accounts); err != nil {
				return err
			}
			zap.L().Info("roster bulk-loaded", zap.String("document_id", documentID))
		} else {
			accounts, err = roster.Import(ctx, st, documentID, rows)
			if err != nil {
				return err
			}
		}

		fmt.Printf("imported %d accounts (%d holders) for document %s\n",
			len(accounts), len(model.AllHolders(accounts)), documentID)
		return nil
	},
}

func init() {
	rosterImportCmd.Flags().StringVar(&rosterCharset, "charset", "", "source encoding of CSV rosters (e.g. windows-1252)")
	rosterImportCmd.Flags().BoolVar(&rosterBulk, "bulk", false, "bulk-load via COPY (postgres only)")
	rosterCmd.AddCommand(rosterImportCmd)
	rootCmd.AddCommand(rosterCmd)
}
