package main

import (
	"strings"

	"github.com/dietmate/categorizer/internal/match"
	"github.com/dietmate/categorizer/internal/model"
	"github.com/dietmate/categorizer/internal/persist"
	"github.com/spf13/cobra"
)

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <product description>",
		Short: "Resolve a product description to a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			gateway := persist.NewGateway(store)
			data := gateway.LoadData(cmd.Context())
			matcher := match.NewMatcher(data)

			text := strings.Join(args, " ")
			categoryID, ok := matcher.SuggestCategory(model.Item{OriginalText: text, Name: text})
			if !ok {
				cmd.Printf("no category for %q (%d records loaded)\n", text, data.Len())
				return nil
			}

			cmd.Printf("%s\n", categoryID)
			return nil
		},
	}
}
