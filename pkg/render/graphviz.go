// Package render turns a diagram description into Graphviz artifacts.
package render

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

const graphName = "ER"

// BuildGraph replays the description as node-add and edge-add operations on
// a directed gographviz graph. Node and edge order follow the description.
func BuildGraph(desc *models.DiagramDescription) (*gographviz.Graph, error) {
	if desc == nil {
		return nil, fmt.Errorf("nil diagram description")
	}

	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return nil, err
	}
	if err := g.SetDir(true); err != nil {
		return nil, err
	}
	if err := g.AddAttr(graphName, "comment", strconv.Quote("ER Diagram")); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(desc.Nodes))
	for _, n := range desc.Nodes {
		attrs := map[string]string{
			"label": strconv.Quote(n.Label),
			"shape": "box",
		}
		if n.Entity != "" {
			attrs["tooltip"] = strconv.Quote(n.Entity)
		}
		if desc.Mode == models.LabelModeRoles {
			attrs["style"] = "filled"
			attrs["color"] = "lightgray"
		}
		if err := g.AddNode(graphName, strconv.Quote(n.ID), attrs); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.ID, err)
		}
		known[n.ID] = true
	}

	for _, e := range desc.Edges {
		if !known[e.From] || !known[e.To] {
			return nil, fmt.Errorf("edge %s -> %s references an unknown node", e.From, e.To)
		}
		attrs := map[string]string{}
		if e.Label != "" {
			attrs["label"] = strconv.Quote(e.Label)
		}
		if err := g.AddEdge(strconv.Quote(e.From), strconv.Quote(e.To), true, attrs); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// BuildDOT returns the DOT source for the description.
func BuildDOT(desc *models.DiagramDescription) (string, error) {
	g, err := BuildGraph(desc)
	if err != nil {
		return "", err
	}
	return g.String(), nil
}
