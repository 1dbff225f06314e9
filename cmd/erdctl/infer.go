package main

import (
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

func newInferCmd(a *app) *cobra.Command {
	var (
		source sourceFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Print candidate keys, relationships and table roles",
		Example: `  erdctl infer --dir ./data
  erdctl infer --postgres "postgres://user@localhost/shop" --schema sales -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			sourceType, opts, err := source.resolve(a.cfg.Inference.MaxSampleRows)
			if err != nil {
				return err
			}

			tables, err := services.LoadTableSource(cmd.Context(), sourceType, opts, a.logger)
			if err != nil {
				return err
			}
			result, err := a.inference().Infer(cmd.Context(), tables)
			if err != nil {
				return err
			}
			return writeInference(cmd.OutOrStdout(), format, result)
		},
	}

	source.register(cmd)
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table, json or yaml")
	return cmd
}

func (a *app) inference() services.SchemaInferenceService {
	return services.NewSchemaInferenceService(services.SchemaInferenceConfig{
		IncludeEmptyTables: a.cfg.Inference.IncludeEmptyTables,
		ExtractionWorkers:  a.cfg.Inference.ExtractionWorkers,
	}, a.logger)
}
