package main

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bobinette/research/pipeline"
)

var (
	runLimit      int
	runReindexAll bool
)

func init() {
	RunCmd.Flags().IntVar(&runLimit, "limit", 0, "limit number of documents to index (0 = all)")
	RunCmd.Flags().BoolVar(&runReindexAll, "reindex-all", false, "reindex every document, not only unindexed ones")
}

var RunCmd = cobra.Command{
	Use:   "run",
	Short: "Single-shot streaming pipeline: fetch, embed, index and sync concurrently, bypassing the checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		printer.Phase("Pipeline mode: fetch || embed || index || sync")

		total, err := store.CountToIndex(appCtx, runReindexAll)
		if err != nil {
			return err
		}
		if runLimit > 0 && int64(runLimit) < total {
			total = int64(runLimit)
		}

		var bar *progressbar.ProgressBar
		if !quiet && total > 0 {
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetDescription("starting..."),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stdout),
			)
		}

		onTick := func(snap pipeline.Snapshot) {
			if bar != nil {
				bar.Describe(printer.Status(snap))
			}
		}

		result, err := pipeline.Run(appCtx, pipelineConfig(), store, engine, embedder, logger, runReindexAll, runLimit, onTick)
		if err != nil {
			return err
		}
		if bar != nil {
			bar.Set64(result.Success)
			bar.Finish()
		}

		printer.Summary("Pipeline run complete", result.Success, result.Errors, result.Elapsed)
		return nil
	},
}
