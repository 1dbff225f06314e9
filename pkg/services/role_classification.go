package services

import (
	"fmt"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// ClassifyRoles labels every table Fact or Dimension. It must run after
// relationships are known for the whole set: a table is Fact iff one of its
// uniqueness-based keys is the shared column of any relationship.
//
// The naming is inverted relative to warehouse convention (a referenced table
// becomes Fact). This is the intended rule.
func ClassifyRoles(tables models.TableSet, keys []models.TableKeys, relationships []models.Relationship) ([]models.RoleAssignment, error) {
	if len(keys) != len(tables) {
		return nil, fmt.Errorf("have keys for %d tables, expected %d", len(keys), len(tables))
	}

	joinKeys := make(map[string]bool, len(relationships))
	for _, rel := range relationships {
		joinKeys[rel.Column] = true
	}

	roles := make([]models.RoleAssignment, len(tables))
	for i, table := range tables {
		role := models.TableRoleDimension
		for _, key := range keys[i].Unique {
			if joinKeys[key] {
				role = models.TableRoleFact
				break
			}
		}
		roles[i] = models.RoleAssignment{Table: table.Name, Role: role}
	}
	return roles, nil
}
