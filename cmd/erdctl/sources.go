package main

import (
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-erd/pkg/adapters/tablesource"
)

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the supported table sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := newTable(cmd.OutOrStdout(), []string{"Type", "Name", "Description"})
			for _, s := range tablesource.RegisteredSources() {
				table.Append([]string{s.Type, s.DisplayName, s.Description})
			}
			table.Render()
			return nil
		},
	}
}
