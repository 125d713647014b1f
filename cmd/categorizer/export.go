package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dietmate/categorizer/internal/persist"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Dump the learned dataset as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			data := persist.NewGateway(store).LoadData(cmd.Context())

			records := data.Snapshot()
			sort.Slice(records, func(i, j int) bool {
				return records[i].CanonicalKey < records[j].CanonicalKey
			})

			out, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode dataset: %w", err)
			}

			cmd.Println(string(out))
			return nil
		},
	}
}
