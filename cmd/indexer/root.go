// Command indexer drives the C4 Pipeline Engine from the command line: the two-phase
// fetch/embed/checkpoint + index/back-sync workflow, plus the single-shot streaming
// Pipeline Mode, index lifecycle management, and checkpoint inspection.
package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobinette/research/cache"
	"github.com/bobinette/research/config"
	"github.com/bobinette/research/embedding"
	"github.com/bobinette/research/log"
	"github.com/bobinette/research/mongostore"
	"github.com/bobinette/research/opensearchengine"
	"github.com/bobinette/research/pipeline"
)

var (
	// flags
	workers int
	quiet   bool

	// wired once in PersistentPreRun
	cfg      *config.Config
	logger   log.Logger
	store    *mongostore.Store
	engine   *opensearchengine.Engine
	embedder *embedding.Client
	chk      *cache.Cache
	printer  *cliPrinter

	// set by main before RootCmd.Execute
	appCtx context.Context
)

func init() {
	RootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "number of parallel workers (0 = config default)")
	RootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress output")

	RootCmd.AddCommand(&Phase1Cmd, &Phase2Cmd, &RunCmd, &StatusCmd, &CleanCmd, &CreateIndexCmd, &ReindexFullCmd)
}

var RootCmd = cobra.Command{
	Use:   "indexer",
	Short: "Index research documents from the authoritative store into the search engine",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if workers > 0 {
			cfg.NumWorkers = workers
		}
		logger = log.New(cfg.Env)
		printer = newCLIPrinter(quiet)

		var err error
		store, err = mongostore.New(appCtx, mongostore.Config{
			URI:            cfg.MongoURI,
			Collection:     cfg.MongoCollection,
			MaxPoolSize:    cfg.MongoMaxPoolSize,
			BulkDelayMs:    cfg.MongoBulkDelayMs,
			MongoBatchSize: cfg.MongoBatchSize,
		})
		if err != nil {
			return err
		}

		engine, err = opensearchengine.New(opensearchengine.Config{
			Hosts:       cfg.OpenSearchHosts,
			User:        cfg.OpenSearchUser,
			Password:    cfg.OpenSearchPassword,
			Index:       cfg.OpenSearchIndex,
			VerifyCerts: cfg.OpenSearchVerifyCerts,
		})
		if err != nil {
			return err
		}

		embedder = embedding.New(embedding.Options{
			BaseURL:    cfg.EmbeddingServiceURL,
			Timeout:    secondsToDuration(cfg.EmbeddingTimeout),
			MaxRetries: cfg.MaxRetries,
			Logger:     logger,
		})

		chk, err = cache.New(cfg.CacheDir)
		return err
	},
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func pipelineConfig() pipeline.Config {
	return pipeline.Config{
		MongoBatchSize:     cfg.MongoBatchSize,
		EmbedBatchSize:     cfg.EmbedBatchSize,
		OpenSearchBulkSize: cfg.OpenSearchBulkSize,
		NumWorkers:         cfg.NumWorkers,
		MongoBulkDelayMs:   cfg.MongoBulkDelayMs,
	}
}
