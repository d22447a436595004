package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path-or-ftp-url>",
	Short: "Process a single document end to end",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Run(ctx, args[0])
		if err != nil {
			return err
		}

		if res.Skipped {
			fmt.Printf("skipped: %s already processed\n", args[0])
			return nil
		}
		fmt.Printf("document %s: %d pages, %d accounts, %d unassociated\n",
			res.DocumentID, res.PageCount, res.Accounts, res.Unassociated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
