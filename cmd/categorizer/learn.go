package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dietmate/categorizer/internal/common"
	"github.com/dietmate/categorizer/internal/learn"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/persist"
	"github.com/spf13/cobra"
)

func learnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "learn <category-id> <product description>",
		Short: "Record a confirmed classification",
		Long: `Record that the given product description belongs to the given
category id, then flush the learned dataset to the store. The flush is
retried a few times on persistence failures; flushes are idempotent so the
retry is safe.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			gateway := persist.NewGateway(store)
			data := gateway.LoadData(cmd.Context())
			engine := learn.NewEngine(data, gateway)

			categoryID := args[0]
			text := strings.Join(args[1:], " ")

			batch := map[string][]model.Item{
				categoryID: {{OriginalText: text, Name: text}},
			}

			err = common.WithRetry(cmd.Context(), func() error {
				return engine.UpdateCategoriesBatch(cmd.Context(), batch)
			}, common.RetryOptions{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond})
			if err != nil {
				return fmt.Errorf("failed to persist confirmation: %w", err)
			}

			cmd.Printf("learned %q -> %s\n", text, categoryID)
			return nil
		},
	}
}
