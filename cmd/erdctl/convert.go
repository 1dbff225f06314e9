package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

func newConvertCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "convert <expression>",
		Short:   "Convert a Tableau expression to DAX",
		Example: `  erdctl convert "SUM([Sales]) / COUNTD([Customer ID])"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != formatJSON && format != formatYAML {
				return fmt.Errorf("invalid output format %q (must be text, json or yaml)", format)
			}

			expressions, err := services.NewExpressionServiceFromConfig(&a.cfg.LLM, a.logger)
			if err != nil {
				return err
			}
			if expressions == nil {
				return errors.New("no LLM model configured (set llm.model or LLM_MODEL)")
			}

			result, err := expressions.Convert(cmd.Context(), services.ExpressionRequest{Expression: args[0]})
			if err != nil {
				return err
			}
			if format == "text" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Converted)
				return err
			}
			return writeStructured(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}
