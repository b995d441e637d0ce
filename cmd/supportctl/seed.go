package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/formbricks/support-hub/internal/api/validation"
	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/internal/repository"
	"github.com/formbricks/support-hub/internal/service"
)

var errEmptySeedFile = errors.New("seed file has no entries")

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert FAQ entries from a YAML file",
	Long: `Inserts every entry of the file (question, answer, category) in one transaction.
Embeddings are not computed here; run "supportctl index" afterwards.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed/faqs.yaml", "YAML file with FAQ entries")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	faqs, err := loadSeedFile(seedFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewFAQIndexService(repository.NewFAQsRepository(db), nil, 0, nil)

	n, err := svc.Seed(ctx, faqs)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	cmd.Printf("Inserted %d FAQs\n", n)

	return nil
}

// loadSeedFile parses and validates every entry before anything touches the database.
func loadSeedFile(path string) ([]models.CreateFAQRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var faqs []models.CreateFAQRequest
	if err := yaml.Unmarshal(data, &faqs); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	if len(faqs) == 0 {
		return nil, fmt.Errorf("%w: %s", errEmptySeedFile, path)
	}

	for i := range faqs {
		if err := validation.ValidateStruct(&faqs[i]); err != nil {
			return nil, fmt.Errorf("entry %d (%q): %w", i+1, faqs[i].Question, err)
		}
	}

	return faqs, nil
}
