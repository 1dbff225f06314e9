package models

import "fmt"

// LabelMode selects how diagram nodes and edges are labeled.
type LabelMode string

const (
	// LabelModeKeys labels nodes with their candidate keys and leaves edges unlabeled.
	LabelModeKeys LabelMode = "keys"
	// LabelModeRoles labels nodes with their role and edges with the join key.
	LabelModeRoles LabelMode = "roles"
)

// ParseLabelMode parses a mode name. An empty string selects LabelModeRoles.
func ParseLabelMode(s string) (LabelMode, error) {
	switch LabelMode(s) {
	case "", LabelModeRoles:
		return LabelModeRoles, nil
	case LabelModeKeys:
		return LabelModeKeys, nil
	default:
		return "", fmt.Errorf("unknown label mode %q (expected %q or %q)", s, LabelModeKeys, LabelModeRoles)
	}
}

// DiagramNode is one table in the diagram.
type DiagramNode struct {
	ID     string    `json:"id"`
	Label  string    `json:"label"`
	Entity string    `json:"entity"`
	Role   TableRole `json:"role"`
	Keys   []string  `json:"keys"`
}

// DiagramEdge is one relationship in the diagram. Label is empty in keys mode.
type DiagramEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// DiagramDescription is the renderer input. It is immutable once built.
type DiagramDescription struct {
	Mode  LabelMode     `json:"mode"`
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}

// RenderedDiagram points at the artifacts produced by the renderer.
type RenderedDiagram struct {
	Format    string `json:"format"`
	ImagePath string `json:"image_path"`
	DOTPath   string `json:"dot_path"`
	ImageSize int64  `json:"image_size"`
}
