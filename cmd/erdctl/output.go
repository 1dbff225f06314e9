package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("invalid output format %q (must be table, json or yaml)", format)
}

// writeStructured writes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return validateFormat(format)
}

func writeInference(w io.Writer, format string, result *models.InferenceResult) error {
	if format != formatTable {
		return writeStructured(w, format, result)
	}

	keys := make(map[string]models.TableKeys, len(result.Keys))
	for _, k := range result.Keys {
		keys[k.Table] = k
	}
	roles := result.RolesByTable()

	tables := newTable(w, []string{"Table", "Role", "Rows", "Unique keys", "Id-suffix keys"})
	sampled := false
	for _, t := range result.Tables {
		rows := strconv.Itoa(t.RowCount)
		if t.SampleLimit > 0 {
			rows += "*"
			sampled = true
		}
		tables.Append([]string{
			t.Name,
			string(roles[t.Name]),
			rows,
			strings.Join(keys[t.Name].Unique, ", "),
			strings.Join(keys[t.Name].Suffix, ", "),
		})
	}
	tables.Render()
	if sampled {
		fmt.Fprintln(w, "* sampled: unique keys hold for the sampled rows only")
	}

	fmt.Fprintln(w)
	if len(result.Relationships) == 0 {
		fmt.Fprintln(w, "No relationships found.")
	} else {
		rels := newTable(w, []string{"Key table", "Other table", "Column"})
		for _, r := range result.Relationships {
			rels.Append([]string{r.KeyTable, r.OtherTable, r.Column})
		}
		rels.Render()
	}

	if len(result.Connectivity.Islands) > 0 {
		fmt.Fprintf(w, "\nUnconnected tables: %s\n", strings.Join(result.Connectivity.Islands, ", "))
	}
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	return table
}
