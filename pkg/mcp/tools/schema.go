package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/adapters/tablesource"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

// SchemaToolDeps contains dependencies for the schema inference tools.
type SchemaToolDeps struct {
	Inference services.SchemaInferenceService
	Diagrams  services.DiagramService
	// DefaultDir is read when a tool call names no directory.
	DefaultDir    string
	MaxSampleRows int
	Logger        *zap.Logger
}

// databaseSources are the table sources infer_database accepts.
var databaseSources = []string{"postgres", "sqlserver", "mysql", "sqlite"}

// RegisterSchemaTools adds infer_schema, infer_database and diagram_dot.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	registerInferSchemaTool(s, deps)
	registerInferDatabaseTool(s, deps)
	registerDiagramDOTTool(s, deps)
}

func registerInferSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"infer_schema",
		mcp.WithDescription(
			"Infer candidate keys, relationships and Fact/Dimension roles for every .csv file in a directory. "+
				"A column is a key when all its values are distinct; relationships join a key of one table to a same-named column of another.",
		),
		mcp.WithString(
			"directory",
			mcp.Description("Optional - Directory holding the .csv files. Defaults to the upload directory."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dir := deps.directory(req)
		tables, err := services.LoadTableSource(ctx, "csv", tablesource.Options{Location: dir}, deps.Logger)
		if err != nil {
			return deps.fail("infer_schema", err)
		}
		return deps.infer(ctx, "infer_schema", tables)
	})
}

func registerInferDatabaseTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"infer_database",
		mcp.WithDescription(
			"Sample the tables of a database and infer candidate keys, relationships and Fact/Dimension roles. "+
				"Declared constraints are ignored; only the sampled data is used.",
		),
		mcp.WithString(
			"source",
			mcp.Required(),
			mcp.Enum(databaseSources...),
			mcp.Description("Database type"),
		),
		mcp.WithString(
			"location",
			mcp.Required(),
			mcp.Description("Connection string, or the database file path for sqlite"),
		),
		mcp.WithString(
			"schema",
			mcp.Description("Optional - Schema to read (defaults to public, dbo or the connected database)"),
		),
		mcp.WithString(
			"tables",
			mcp.Description("Optional - Comma-separated table names to restrict the analysis to"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := req.RequireString("source")
		if err != nil {
			return NewErrorResult("invalid_parameters", "source is required"), nil
		}
		source = trimString(source)
		if !isDatabaseSource(source) {
			return NewErrorResultWithDetails("invalid_parameters",
				fmt.Sprintf("unsupported source %q", source),
				map[string]any{"allowed": databaseSources}), nil
		}
		location, err := req.RequireString("location")
		if err != nil || trimString(location) == "" {
			return NewErrorResult("invalid_parameters", "location is required"), nil
		}

		opts := tablesource.Options{
			Location: trimString(location),
			Schema:   trimString(req.GetString("schema", "")),
			Tables:   splitList(req.GetString("tables", "")),
			MaxRows:  deps.MaxSampleRows,
		}
		tables, err := services.LoadTableSource(ctx, source, opts, deps.Logger)
		if err != nil {
			return deps.fail("infer_database", err)
		}
		return deps.infer(ctx, "infer_database", tables)
	})
}

func registerDiagramDOTTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"diagram_dot",
		mcp.WithDescription("Build the Graphviz DOT source of the ER diagram for the .csv files in a directory"),
		mcp.WithString(
			"directory",
			mcp.Description("Optional - Directory holding the .csv files. Defaults to the upload directory."),
		),
		mcp.WithString(
			"mode",
			mcp.Enum(string(models.LabelModeRoles), string(models.LabelModeKeys)),
			mcp.Description("Optional - Node labels: roles (default) or keys"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode, err := models.ParseLabelMode(trimString(req.GetString("mode", "")))
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		tables, err := services.LoadTableSource(ctx, "csv", tablesource.Options{Location: deps.directory(req)}, deps.Logger)
		if err != nil {
			return deps.fail("diagram_dot", err)
		}
		source, err := deps.Diagrams.DOT(ctx, tables, mode)
		if err != nil {
			return deps.fail("diagram_dot", err)
		}
		return mcp.NewToolResultText(source), nil
	})
}

func (d *SchemaToolDeps) directory(req mcp.CallToolRequest) string {
	if dir := trimString(req.GetString("directory", "")); dir != "" {
		return dir
	}
	return d.DefaultDir
}

func (d *SchemaToolDeps) infer(ctx context.Context, tool string, tables models.TableSet) (*mcp.CallToolResult, error) {
	result, err := d.Inference.Infer(ctx, tables)
	if err != nil {
		return d.fail(tool, err)
	}
	return jsonResult(result)
}

func (d *SchemaToolDeps) fail(tool string, err error) (*mcp.CallToolResult, error) {
	if result := ToolErrorResult(err); result != nil {
		d.Logger.Debug("Tool rejected request", zap.String("tool", tool), zap.String("error", logging.SanitizeError(err)))
		return result, nil
	}
	return nil, fmt.Errorf("%s: %w", tool, err)
}

func isDatabaseSource(source string) bool {
	for _, s := range databaseSources {
		if s == source {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
