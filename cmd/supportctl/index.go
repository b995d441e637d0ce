package main

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/spf13/cobra"

	"github.com/formbricks/support-hub/internal/repository"
	"github.com/formbricks/support-hub/internal/service"
)

var indexMaxAttempts int

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Enqueue embedding jobs for FAQs without an embedding",
	Long: `Enqueues one faq_embedding job per FAQ that has no stored embedding. Jobs are
processed by an API instance running with INDEXER_ENABLED=true.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexMaxAttempts, "max-attempts", 3, "attempts per embedding job")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	// Insert-only client: no queues or workers are started here.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		return fmt.Errorf("create River client: %w", err)
	}

	inserter := service.NewRetryingJobInserter(riverClient, service.RetryingJobInserterConfig{MaxRetries: 2})
	svc := service.NewFAQIndexService(repository.NewFAQsRepository(db), inserter, indexMaxAttempts, nil)

	n, err := svc.Backfill(ctx)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	cmd.Printf("Enqueued %d embedding jobs\n", n)

	return nil
}
