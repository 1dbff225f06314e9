package models

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
)

// ValueKind identifies the representation of a single cell.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueNumber
	ValueText
)

// Value is one cell of a tabular dataset.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
}

// NullValue returns a null cell.
func NullValue() Value {
	return Value{Kind: ValueNull}
}

// NumberValue returns a numeric cell.
func NumberValue(f float64) Value {
	return Value{Kind: ValueNumber, Number: f}
}

// TextValue returns a text cell.
func TextValue(s string) Value {
	return Value{Kind: ValueText, Text: s}
}

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool {
	return v.Kind == ValueNull
}

// Key returns the identity used when counting distinct values.
// All nulls share one key; numbers compare by value, so 1 and 1.0 are equal.
func (v Value) Key() string {
	switch v.Kind {
	case ValueNumber:
		n := v.Number
		if n == 0 {
			n = 0 // fold -0 into 0
		}
		return "n:" + strconv.FormatFloat(n, 'g', -1, 64)
	case ValueText:
		return "t:" + v.Text
	default:
		return "null"
	}
}

// String renders the cell for display.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case ValueText:
		return v.Text
	default:
		return ""
	}
}

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// DistinctCount returns the number of distinct values in the column.
func (c *Column) DistinctCount() int {
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		seen[v.Key()] = struct{}{}
	}
	return len(seen)
}

// Table is one loaded dataset. Name is unique within a TableSet.
type Table struct {
	Name    string
	Columns []Column

	// SampleLimit is the row cap a database source hit while sampling the
	// table; zero means every row was read. Uniqueness on a capped table is
	// only known for the sample.
	SampleLimit int
}

// RowCount returns the number of rows. A table without columns has zero rows.
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the table has a column with exactly this name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// EntityName returns the singular entity the table describes,
// e.g. "orders.csv" -> "order".
func (t *Table) EntityName() string {
	base := filepath.Base(t.Name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return inflection.Singular(base)
}

// Validate checks that every column has the same number of rows.
func (t *Table) Validate() error {
	if t.Name == "" {
		return apperrors.NewInputError(apperrors.StageLoad, "table has no name", nil)
	}
	rows := t.RowCount()
	for _, c := range t.Columns {
		if len(c.Values) != rows {
			return apperrors.NewInputError(apperrors.StageLoad,
				fmt.Sprintf("table %q column %q has %d rows, expected %d", t.Name, c.Name, len(c.Values), rows),
				apperrors.ErrRaggedTable)
		}
	}
	return nil
}

// TableSet is an ordered collection of tables. Order drives every
// deterministic ordering in inference output.
type TableSet []*Table

// Names returns the table names in set order.
func (s TableSet) Names() []string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.Name
	}
	return names
}

// Validate checks that the set is non-empty, names are unique and every table is well formed.
func (s TableSet) Validate() error {
	if len(s) == 0 {
		return apperrors.NewInputError(apperrors.StageLoad, "nothing to infer", apperrors.ErrNoTables)
	}
	seen := make(map[string]bool, len(s))
	for _, t := range s {
		if t == nil {
			return apperrors.NewInputError(apperrors.StageLoad, "nil table in set", nil)
		}
		if seen[t.Name] {
			return apperrors.NewInputError(apperrors.StageLoad,
				fmt.Sprintf("table %q appears more than once", t.Name), apperrors.ErrDuplicateTable)
		}
		seen[t.Name] = true
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TableSummary describes a table without its data.
type TableSummary struct {
	Name     string   `json:"name" yaml:"name"`
	Entity   string   `json:"entity" yaml:"entity"`
	RowCount int      `json:"row_count" yaml:"row_count"`
	Columns  []string `json:"columns" yaml:"columns"`

	// SampleLimit is set when the rows are a capped sample of a larger table.
	SampleLimit int `json:"sample_limit,omitempty" yaml:"sample_limit,omitempty"`
}

// Summarize returns summaries for every table in set order.
func (s TableSet) Summarize() []TableSummary {
	summaries := make([]TableSummary, len(s))
	for i, t := range s {
		summaries[i] = TableSummary{
			Name:     t.Name,
			Entity:   t.EntityName(),
			RowCount:    t.RowCount(),
			Columns:     t.ColumnNames(),
			SampleLimit: t.SampleLimit,
		}
	}
	return summaries
}
