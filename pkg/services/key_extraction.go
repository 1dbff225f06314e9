package services

import (
	"strings"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// keyNameSuffix marks a column as a candidate key by name. Matching is
// case-sensitive and does not respect word boundaries ("valid" matches).
const keyNameSuffix = "id"

// KeyExtractionOptions tunes candidate-key extraction.
type KeyExtractionOptions struct {
	// IncludeEmptyTables accepts the vacuous uniqueness match on zero-row tables
	// (0 distinct values == 0 rows). When false, zero-row tables yield no
	// uniqueness-based candidates.
	IncludeEmptyTables bool
}

// ExtractCandidateKeys returns both candidate-key sets of a single table.
// It depends on nothing but the table itself.
func ExtractCandidateKeys(table *models.Table, opts KeyExtractionOptions) models.TableKeys {
	return models.TableKeys{
		Table:  table.Name,
		Unique: UniqueKeyColumns(table, opts),
		Suffix: SuffixKeyColumns(table),
	}
}

// UniqueKeyColumns returns, in column order, the columns whose distinct value
// count equals the row count. Nulls count as one distinct value.
func UniqueKeyColumns(table *models.Table, opts KeyExtractionOptions) []string {
	keys := make([]string, 0)
	rows := table.RowCount()
	if rows == 0 && !opts.IncludeEmptyTables {
		return keys
	}
	for i := range table.Columns {
		col := &table.Columns[i]
		if col.DistinctCount() == rows {
			keys = append(keys, col.Name)
		}
	}
	return keys
}

// SuffixKeyColumns returns, in column order, the columns whose name ends with "id".
func SuffixKeyColumns(table *models.Table) []string {
	keys := make([]string, 0)
	for _, col := range table.Columns {
		if strings.HasSuffix(col.Name, keyNameSuffix) {
			keys = append(keys, col.Name)
		}
	}
	return keys
}
