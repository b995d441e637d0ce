// Command supportctl seeds the knowledge base, enqueues embedding jobs and runs the QA set
// against a running API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/spf13/cobra"

	"github.com/formbricks/support-hub/pkg/database"
)

var errNoDatabaseURL = errors.New("database URL not set (use --database-url or DATABASE_URL)")

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "supportctl",
	Short: "Operate the support knowledge base",
	Long: `supportctl loads FAQ entries, enqueues their embedding jobs and replays the
QA set against a running support API.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to load .env file", "error", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default $DATABASE_URL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// openPool connects with pgvector types registered. The flag wins over DATABASE_URL.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	url := databaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}

	if url == "" {
		return nil, errNoDatabaseURL
	}

	db, err := database.NewPostgresPool(ctx, url, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	return db, nil
}
