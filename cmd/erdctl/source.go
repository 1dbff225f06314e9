package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-erd/pkg/adapters/tablesource"
)

// sourceFlags selects where tables are loaded from. Exactly one of the
// location flags must be set.
type sourceFlags struct {
	dir       string
	postgres  string
	sqlserver string
	mysql     string
	sqlite    string

	schema  string
	tables  string
	maxRows int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "Directory of .csv files")
	cmd.Flags().StringVar(&f.postgres, "postgres", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&f.sqlserver, "sqlserver", "", "SQL Server connection string")
	cmd.Flags().StringVar(&f.mysql, "mysql", "", "MySQL DSN")
	cmd.Flags().StringVar(&f.sqlite, "sqlite", "", "SQLite database file path")
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "Database schema (default: public, dbo or the connected database)")
	cmd.Flags().StringVarP(&f.tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", -1, "Rows sampled per database table (default: inference.max_sample_rows, 0 for all)")
}

// resolve returns the source type and options. defaultMaxRows applies when
// --max-rows was not given.
func (f *sourceFlags) resolve(defaultMaxRows int) (string, tablesource.Options, error) {
	candidates := []struct {
		sourceType string
		location   string
	}{
		{"csv", f.dir},
		{"postgres", f.postgres},
		{"sqlserver", f.sqlserver},
		{"mysql", f.mysql},
		{"sqlite", f.sqlite},
	}

	var sourceType, location string
	for _, c := range candidates {
		if c.location == "" {
			continue
		}
		if sourceType != "" {
			return "", tablesource.Options{}, fmt.Errorf("only one of --dir, --postgres, --sqlserver, --mysql or --sqlite can be specified")
		}
		sourceType, location = c.sourceType, c.location
	}
	if sourceType == "" {
		return "", tablesource.Options{}, fmt.Errorf("one of --dir, --postgres, --sqlserver, --mysql or --sqlite must be specified")
	}

	maxRows := f.maxRows
	if maxRows < 0 {
		maxRows = defaultMaxRows
	}

	return sourceType, tablesource.Options{
		Location: location,
		Schema:   f.schema,
		Tables:   splitTables(f.tables),
		MaxRows:  maxRows,
	}, nil
}

func splitTables(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
