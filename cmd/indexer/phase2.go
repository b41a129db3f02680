package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bobinette/research/pipeline"
)

var Phase2Cmd = cobra.Command{
	Use:   "phase2",
	Short: "Bulk-index checkpointed entries and back-sync cross-reference ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		printer.Phase("Phase 2: index & sync")

		start := time.Now()
		result, err := pipeline.Phase2(appCtx, pipelineConfig(), store, engine, chk, logger)
		if err != nil {
			return err
		}

		printer.Step("indexed and back-synced cross-reference ids")
		printer.Summary("Phase 2 complete", result.Indexed, result.Errors, time.Since(start))
		return nil
	},
}
