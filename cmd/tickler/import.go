package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amonks/tickler/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Create tasks from a YAML file",
	Long: `Create tasks from a YAML file.

The file lists tasks under a top-level "tasks" key:

  tasks:
    - title: Renew passport
      tag: personal
      date: 2026-04-01
    - title: Mum's birthday
      tag: birthday
      date: 14-06

Every task is validated before any is created.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	inputs, err := importer.Parse(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.repo()
	ids, importErr := importer.Import(ctx, repo, inputs)
	if len(ids) > 0 {
		if err := a.waitFor(ctx, func() bool {
			for _, id := range ids {
				if _, ok := repo.Get(id); !ok {
					return false
				}
			}
			return true
		}); err != nil {
			return err
		}
	}
	if importErr != nil {
		if len(ids) > 0 {
			fmt.Printf("Imported %d of %d task(s) before failing.\n", len(ids), len(inputs))
		}
		return importErr
	}

	fmt.Printf("Imported %d task(s).\n", len(ids))
	return nil
}
