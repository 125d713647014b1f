package main

import (
	"fmt"

	"github.com/dietmate/categorizer/internal/docstore"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/normalize"
	"github.com/dietmate/categorizer/internal/sweep"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Merge duplicate records in the document store",
		Long: `Group every stored document by its recomputed canonical key and merge
groups that hold more than one document. Merges are committed in chunks:
if the run fails partway, already-committed merges stay committed and the
sweep can simply be re-run. Do not run two sweeps at once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if dryRun {
				return reportDuplicates(cmd, store)
			}

			res, err := sweep.NewSweeper(store).CleanupDuplicates(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep aborted (committed merges are kept, re-run to finish): %w", err)
			}

			cmd.Printf("swept %d documents: %d merged, %d deleted\n", res.Documents, res.Merged, res.Deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report duplicate groups without writing")

	return cmd
}

func reportDuplicates(cmd *cobra.Command, store docstore.Store) error {
	docs, err := store.GetAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read documents: %w", err)
	}

	groups := make(map[string][]model.Document)
	for _, doc := range docs {
		if key := normalize.DeriveKey(doc.Name); key != "" {
			groups[key] = append(groups[key], doc)
		}
	}

	dupes := 0
	for key, group := range groups {
		if len(group) < 2 {
			continue
		}
		dupes++
		cmd.Printf("%s: %d documents", key, len(group))
		for _, doc := range group {
			cmd.Printf(" %s", doc.ID)
		}
		cmd.Println()
	}

	cmd.Printf("%d duplicate group(s) across %d documents\n", dupes, len(docs))
	return nil
}
