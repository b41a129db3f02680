package main

import (
	"os"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bobinette/research/pipeline"
)

var (
	phase1Limit      int
	phase1ReindexAll bool
)

func init() {
	Phase1Cmd.Flags().IntVar(&phase1Limit, "limit", 0, "limit number of documents to fetch and embed (0 = all)")
	Phase1Cmd.Flags().BoolVar(&phase1ReindexAll, "reindex-all", false, "re-embed every document, not only unindexed ones")
}

var Phase1Cmd = cobra.Command{
	Use:   "phase1",
	Short: "Fetch and embed documents, checkpointing results to the on-disk cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		printer.Phase("Phase 1: fetch & embed")

		total, err := store.CountToIndex(appCtx, phase1ReindexAll)
		if err != nil {
			return err
		}
		if phase1Limit > 0 && int64(phase1Limit) < total {
			total = int64(phase1Limit)
		}
		printer.Step("documents to process: " + strconv.FormatInt(total, 10))

		var bar *progressbar.ProgressBar
		if !quiet && total > 0 {
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetDescription("embedding..."),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stdout),
			)
		}

		start := time.Now()
		result, err := pipeline.Phase1(appCtx, pipelineConfig(), store, embedder, chk, logger, phase1ReindexAll, phase1Limit)
		if err != nil {
			return err
		}
		if bar != nil {
			bar.Set64(result.Processed)
			bar.Finish()
		}

		printer.Summary("Phase 1 complete", result.Processed, result.Errors, time.Since(start))
		return nil
	},
}
