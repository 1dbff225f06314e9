package services

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// BuildDiagramDescription formats an inference result for the renderer.
// It never re-runs inference.
//
// In keys mode nodes show their uniqueness-based keys and edges are unlabeled.
// In roles mode nodes show their role and edges carry the join key.
func BuildDiagramDescription(result *models.InferenceResult, mode models.LabelMode) (*models.DiagramDescription, error) {
	if result == nil {
		return nil, fmt.Errorf("nil inference result")
	}
	if mode != models.LabelModeKeys && mode != models.LabelModeRoles {
		return nil, fmt.Errorf("unknown label mode %q", mode)
	}

	keys := result.UniqueKeysByTable()
	roles := result.RolesByTable()

	nodes := make([]models.DiagramNode, 0, len(result.Tables))
	for _, table := range result.Tables {
		role, ok := roles[table.Name]
		if !ok {
			return nil, fmt.Errorf("table %q has no role", table.Name)
		}
		tableKeys, ok := keys[table.Name]
		if !ok {
			return nil, fmt.Errorf("table %q has no key set", table.Name)
		}

		var detail string
		if mode == models.LabelModeKeys {
			detail = strings.Join(tableKeys, ", ")
		} else {
			detail = string(role)
		}

		nodes = append(nodes, models.DiagramNode{
			ID:     table.Name,
			Label:  fmt.Sprintf("%s\n(%s)", table.Name, detail),
			Entity: table.Entity,
			Role:   role,
			Keys:   tableKeys,
		})
	}

	edges := make([]models.DiagramEdge, 0, len(result.Relationships))
	for _, rel := range result.Relationships {
		edge := models.DiagramEdge{From: rel.KeyTable, To: rel.OtherTable}
		if mode == models.LabelModeRoles {
			edge.Label = rel.Column
		}
		edges = append(edges, edge)
	}

	return &models.DiagramDescription{
		Mode:  mode,
		Nodes: nodes,
		Edges: edges,
	}, nil
}
