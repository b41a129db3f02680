package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var CreateIndexCmd = cobra.Command{
	Use:   "create-index",
	Short: "Create the search engine index if it does not already exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.CreateIndex(appCtx); err != nil {
			return err
		}
		fmt.Println("index ready")
		return nil
	},
}

// ReindexFullCmd follows the reference indexer's own reindex-full recipe: delete the
// index, recreate it with the current mapping, clear every cross-reference id, clear the
// checkpoint, then run both phases with reindex-all set.
var ReindexFullCmd = cobra.Command{
	Use:   "reindex-full",
	Short: "Delete and recreate the index, clear all state, then reindex everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		printer.Phase("Full reindex")

		printer.Step("deleting index")
		if err := engine.DeleteIndex(appCtx); err != nil {
			return err
		}

		printer.Step("creating index")
		if err := engine.CreateIndex(appCtx); err != nil {
			return err
		}

		printer.Step("clearing cross-reference ids")
		if err := store.ClearCrossRefIDs(appCtx); err != nil {
			return err
		}

		printer.Step("clearing checkpoint")
		if err := chk.Clear(); err != nil {
			return err
		}

		phase1ReindexAll = true
		phase1Limit = 0
		if err := Phase1Cmd.RunE(cmd, nil); err != nil {
			return err
		}
		return Phase2Cmd.RunE(cmd, nil)
	},
}
