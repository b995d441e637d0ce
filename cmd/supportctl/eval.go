package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/formbricks/support-hub/internal/eval"
)

var errEvalFailed = errors.New("one or more eval cases failed")

var (
	evalCases   string
	evalBaseURL string
	evalPause   time.Duration
	evalStrict  bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Replay the QA set against a running API",
	Long: `Posts every case to /api/support-chat and checks that the reply contains all
expected tokens (case, accent and dash insensitive). Prints one line per case,
the score and the p95 latency.`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalCases, "cases", "eval/cases.yaml", "YAML file with eval cases")
	evalCmd.Flags().StringVar(&evalBaseURL, "base-url", "http://localhost:8080", "API base URL")
	evalCmd.Flags().DurationVar(&evalPause, "pause", eval.DefaultPause, "delay between cases")
	evalCmd.Flags().BoolVar(&evalStrict, "strict", false, "exit non-zero when a case fails")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, _ []string) error {
	cases, err := eval.LoadCases(evalCases)
	if err != nil {
		return err
	}

	client := eval.NewClient(eval.ClientOptions{BaseURL: evalBaseURL})

	report, err := eval.NewRunner(client, cmd.OutOrStdout(), evalPause).Run(cmd.Context(), cases)
	if err != nil {
		return err
	}

	if evalStrict && report.Failed() {
		return errEvalFailed
	}

	return nil
}
