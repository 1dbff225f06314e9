package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
	"github.com/ekaya-inc/ekaya-erd/pkg/render"
	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

func newDiagramCmd(a *app) *cobra.Command {
	var (
		source    sourceFlags
		mode      string
		outDir    string
		dotBinary string
		dotOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Render the ER diagram",
		Example: `  erdctl diagram --dir ./data --mode keys --out ./static
  erdctl diagram --sqlite shop.db --dot-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			labelMode, err := models.ParseLabelMode(mode)
			if err != nil {
				return err
			}
			sourceType, opts, err := source.resolve(a.cfg.Inference.MaxSampleRows)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = a.cfg.Storage.OutputDir
			}

			tables, err := services.LoadTableSource(cmd.Context(), sourceType, opts, a.logger)
			if err != nil {
				return err
			}

			renderCfg := render.Config{
				Binary:  a.cfg.Render.DotBinary,
				Format:  a.cfg.Render.Format,
				Timeout: a.cfg.Render.Timeout,
			}
			if dotBinary != "" {
				renderCfg.Binary = dotBinary
			}
			diagrams := services.NewDiagramService(a.inference(), render.NewDotRenderer(renderCfg, a.logger), outDir, a.logger)
			out := cmd.OutOrStdout()

			if dotOnly {
				dotSource, err := diagrams.DOT(cmd.Context(), tables, labelMode)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				path := filepath.Join(outDir, render.DefaultBaseName+".dot")
				if err := os.WriteFile(path, []byte(dotSource), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "DOT: %s\n", path)
				return nil
			}

			report, err := diagrams.Generate(cmd.Context(), tables, labelMode)
			if err != nil {
				return err
			}
			if report.Diagram != nil {
				diagram, err := render.Promote(report.Diagram, render.DefaultBaseName)
				if err != nil {
					return err
				}
				report.Diagram = diagram
			}
			if report.Diagram != nil && report.Diagram.DOTPath != "" {
				fmt.Fprintf(out, "DOT: %s\n", report.Diagram.DOTPath)
			}
			if !report.Rendered {
				return fmt.Errorf("diagram not rendered: %w", report.RenderErr)
			}
			fmt.Fprintf(out, "Image: %s (%d bytes)\n", report.Diagram.ImagePath, report.Diagram.ImageSize)
			return nil
		},
	}

	source.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", string(models.LabelModeRoles), "Node labels: roles or keys")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: storage.output_dir)")
	cmd.Flags().StringVar(&dotBinary, "dot-binary", "", "Graphviz dot executable (default: render.dot_binary)")
	cmd.Flags().BoolVar(&dotOnly, "dot-only", false, "Write the DOT source without running Graphviz")
	return cmd
}
