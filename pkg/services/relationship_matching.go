package services

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// MatchRelationships finds every (A, B, k) where k is a uniqueness-based key of
// table A and B != A has a column named k.
//
// keys must hold one entry per table in the same order as tables. Output order
// is table order, then key order, then other-table order. A key may fan out to
// several tables; every match is kept.
func MatchRelationships(tables models.TableSet, keys []models.TableKeys) ([]models.Relationship, error) {
	if len(keys) != len(tables) {
		return nil, fmt.Errorf("have keys for %d tables, expected %d", len(keys), len(tables))
	}

	relationships := make([]models.Relationship, 0)
	for i, table := range tables {
		if keys[i].Table != table.Name {
			return nil, fmt.Errorf("keys at position %d belong to %q, expected %q", i, keys[i].Table, table.Name)
		}
		for _, key := range keys[i].Unique {
			for j, other := range tables {
				if i == j {
					continue
				}
				if other.HasColumn(key) {
					relationships = append(relationships, models.Relationship{
						KeyTable:   table.Name,
						OtherTable: other.Name,
						Column:     key,
					})
				}
			}
		}
	}
	return relationships, nil
}
