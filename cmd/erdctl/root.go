package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/config"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
)

// defaultLogLevel keeps command output free of routine service logs.
const defaultLogLevel = "warn"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "erdctl",
		Short:         "Infer ER schemas from CSV files or databases",
		Long:          `erdctl finds candidate keys, relationships and Fact/Dimension roles in tabular data, renders ER diagrams with Graphviz and converts Tableau expressions to DAX.`,
		Version:       Version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: config.yaml if present, else environment)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", defaultLogLevel, "Log level: debug, info, warn or error")

	root.AddCommand(newInferCmd(a), newDiagramCmd(a), newConvertCmd(a), newSourcesCmd())
	return root
}

func (a *app) setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFromFile(a.configPath, Version)
	} else {
		a.cfg, err = config.Load(Version)
	}
	if err != nil {
		return err
	}

	a.logger, err = logging.NewLogger(a.cfg.Env, a.logLevel)
	return err
}
