package services

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// TableGraph represents a graph of tables connected by inferred relationships.
type TableGraph struct {
	// Adjacency list: table -> list of tables it's connected to
	edges map[string][]string
	// Insertion position of every table, used to keep output deterministic
	position map[string]int
	order    []string
}

// NewTableGraph creates a new empty table graph.
func NewTableGraph() *TableGraph {
	return &TableGraph{
		edges:    make(map[string][]string),
		position: make(map[string]int),
	}
}

// AddTable adds a table to the graph without any edges.
// Used to track tables that have no relationships.
func (g *TableGraph) AddTable(name string) {
	if _, ok := g.position[name]; ok {
		return
	}
	g.position[name] = len(g.order)
	g.order = append(g.order, name)
}

// AddRelationship adds an undirected edge between the key table and the other table.
func (g *TableGraph) AddRelationship(rel models.Relationship) {
	g.AddTable(rel.KeyTable)
	g.AddTable(rel.OtherTable)

	g.edges[rel.KeyTable] = append(g.edges[rel.KeyTable], rel.OtherTable)
	g.edges[rel.OtherTable] = append(g.edges[rel.OtherTable], rel.KeyTable)
}

// ConnectedComponent represents a group of tables connected by relationships.
type ConnectedComponent struct {
	Tables []string
	Size   int
}

// FindConnectedComponents identifies all connected components in the graph using DFS.
// Returns components with more than one table, largest first, and the island tables.
// Tables inside a component and the islands keep insertion order.
func (g *TableGraph) FindConnectedComponents() ([]ConnectedComponent, []string) {
	visited := make(map[string]bool)
	var components []ConnectedComponent
	var islands []string

	for _, table := range g.order {
		if visited[table] {
			continue
		}
		component := g.dfs(table, visited)
		sort.Slice(component, func(i, j int) bool {
			return g.position[component[i]] < g.position[component[j]]
		})
		if len(component) == 1 {
			islands = append(islands, component[0])
			continue
		}
		components = append(components, ConnectedComponent{
			Tables: component,
			Size:   len(component),
		})
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].Size > components[j].Size
	})

	return components, islands
}

// dfs performs depth-first search starting from a table.
// Returns all tables in the connected component.
func (g *TableGraph) dfs(start string, visited map[string]bool) []string {
	var component []string
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}

		visited[current] = true
		component = append(component, current)

		for _, neighbor := range g.edges[current] {
			if !visited[neighbor] {
				stack = append(stack, neighbor)
			}
		}
	}

	return component
}

// Connectivity computes the connectivity summary for a table set and its relationships.
func Connectivity(tables models.TableSet, relationships []models.Relationship) models.Connectivity {
	g := NewTableGraph()
	for _, t := range tables {
		g.AddTable(t.Name)
	}
	for _, rel := range relationships {
		g.AddRelationship(rel)
	}

	components, islands := g.FindConnectedComponents()
	out := models.Connectivity{
		Components: make([][]string, 0, len(components)),
		Islands:    islands,
	}
	if out.Islands == nil {
		out.Islands = []string{}
	}
	for _, c := range components {
		out.Components = append(out.Components, c.Tables)
	}
	return out
}

// LogConnectivity logs the connectivity analysis results in a human-readable format.
func LogConnectivity(relationshipCount int, connectivity models.Connectivity, logger *zap.Logger) {
	logger.Info("Relationship graph connectivity",
		zap.Int("relationships", relationshipCount),
		zap.Int("components", len(connectivity.Components)),
		zap.Int("islands", len(connectivity.Islands)))

	for i, comp := range connectivity.Components {
		// Show first 5 tables, then "..."
		preview := comp
		suffix := ""
		if len(comp) > 5 {
			preview = comp[:5]
			suffix = fmt.Sprintf(", ... (%d more)", len(comp)-5)
		}
		logger.Debug(fmt.Sprintf("  Component %d (%d tables): %v%s", i+1, len(comp), preview, suffix))
	}

	if len(connectivity.Islands) > 0 {
		preview := connectivity.Islands
		suffix := ""
		if len(preview) > 5 {
			preview = preview[:5]
			suffix = fmt.Sprintf(", ... (%d more)", len(connectivity.Islands)-5)
		}
		logger.Debug(fmt.Sprintf("  Island tables (%d): %v%s", len(connectivity.Islands), preview, suffix))
	}
}
