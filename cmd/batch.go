package main

import (
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Sweep configured drop folders and process every pending document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		refs, err := env.Fetcher.Sweep(ctx)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(refs) > batchLimit {
			refs = refs[:batchLimit]
		}
		if len(refs) == 0 {
			fmt.Println("nothing to process")
			return nil
		}

		concurrency := cfg.Batch.MaxConcurrentDocuments
		if concurrency <= 0 {
			concurrency = 3
		}

		var processed, skipped, failed atomic.Int32

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(concurrency, len(refs)))
		for _, ref := range refs {
			g.Go(func() error {
				// A document that fails must not abort the sweep.
				res, err := env.Pipeline.Run(gctx, ref)
				if err != nil {
					failed.Add(1)
					zap.L().Error("document failed", zap.String("ref", ref), zap.Error(err))
					return nil
				}
				if res.Skipped {
					skipped.Add(1)
				} else {
					processed.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("batch done: %d processed, %d skipped, %d failed (of %d)\n",
			processed.Load(), skipped.Load(), failed.Load(), len(refs))
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max documents to process this sweep (0 = all)")
	rootCmd.AddCommand(batchCmd)
}
