package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

func inferScenarioA(t *testing.T) *models.InferenceResult {
	t.Helper()
	tables := scenarioA()
	keys := extractAll(tables)
	rels, err := MatchRelationships(tables, keys)
	require.NoError(t, err)
	roles, err := ClassifyRoles(tables, keys, rels)
	require.NoError(t, err)
	return &models.InferenceResult{
		Tables:        tables.Summarize(),
		Keys:          keys,
		Relationships: rels,
		Roles:         roles,
	}
}

func TestBuildDiagramDescription_RolesMode(t *testing.T) {
	desc, err := BuildDiagramDescription(inferScenarioA(t), models.LabelModeRoles)
	require.NoError(t, err)

	assert.Equal(t, models.LabelModeRoles, desc.Mode)
	require.Len(t, desc.Nodes, 2)
	assert.Equal(t, "orders.csv", desc.Nodes[0].ID)
	assert.Equal(t, "orders.csv\n(Dimension)", desc.Nodes[0].Label)
	assert.Equal(t, "order", desc.Nodes[0].Entity)
	assert.Equal(t, "customers.csv\n(Fact)", desc.Nodes[1].Label)
	assert.Equal(t, "customer", desc.Nodes[1].Entity)

	assert.Equal(t, []models.DiagramEdge{
		{From: "customers.csv", To: "orders.csv", Label: "customer_id"},
	}, desc.Edges)
}

func TestBuildDiagramDescription_KeysMode(t *testing.T) {
	desc, err := BuildDiagramDescription(inferScenarioA(t), models.LabelModeKeys)
	require.NoError(t, err)

	assert.Equal(t, "orders.csv\n(order_id)", desc.Nodes[0].Label)
	assert.Equal(t, "customers.csv\n(customer_id, name)", desc.Nodes[1].Label)
	assert.Equal(t, []string{"customer_id", "name"}, desc.Nodes[1].Keys)

	require.Len(t, desc.Edges, 1)
	assert.Empty(t, desc.Edges[0].Label)
}

func TestBuildDiagramDescription_NoKeys(t *testing.T) {
	result := &models.InferenceResult{
		Tables: []models.TableSummary{{Name: "dups.csv"}},
		Keys:   []models.TableKeys{{Table: "dups.csv"}},
		Roles:  []models.RoleAssignment{{Table: "dups.csv", Role: models.TableRoleDimension}},
	}

	desc, err := BuildDiagramDescription(result, models.LabelModeKeys)
	require.NoError(t, err)
	assert.Equal(t, "dups.csv\n()", desc.Nodes[0].Label)
	assert.Empty(t, desc.Edges)
}

func TestBuildDiagramDescription_Errors(t *testing.T) {
	_, err := BuildDiagramDescription(nil, models.LabelModeRoles)
	assert.Error(t, err)

	_, err = BuildDiagramDescription(inferScenarioA(t), models.LabelMode("fancy"))
	assert.Error(t, err)

	missingRole := inferScenarioA(t)
	missingRole.Roles = missingRole.Roles[:1]
	_, err = BuildDiagramDescription(missingRole, models.LabelModeRoles)
	assert.Error(t, err)
}
