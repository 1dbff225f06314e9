package tools

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

// ExpressionToolDeps contains dependencies for the expression conversion tool.
type ExpressionToolDeps struct {
	Expressions   services.ExpressionService
	SourceDialect string
	TargetDialect string
	Logger        *zap.Logger
}

// RegisterExpressionTools adds convert_expression.
func RegisterExpressionTools(s *server.MCPServer, deps *ExpressionToolDeps) {
	tool := mcp.NewTool(
		"convert_expression",
		mcp.WithDescription("Convert a "+deps.SourceDialect+" calculated-field expression into an equivalent "+deps.TargetDialect+" expression"),
		mcp.WithString(
			"expression",
			mcp.Required(),
			mcp.Description("The "+deps.SourceDialect+" expression to convert"),
		),
		mcp.WithString(
			"chat_id",
			mcp.Description("Optional - Conversation UUID to correlate related conversions"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		expression, err := req.RequireString("expression")
		if err != nil {
			return NewErrorResult("invalid_parameters", "expression is required"), nil
		}

		serviceReq := services.ExpressionRequest{Expression: expression}
		if chatID := trimString(req.GetString("chat_id", "")); chatID != "" {
			id, err := uuid.Parse(chatID)
			if err != nil {
				return NewErrorResult("invalid_parameters", "chat_id must be a UUID"), nil
			}
			serviceReq.ConversationID = &id
		}

		result, err := deps.Expressions.Convert(ctx, serviceReq)
		if err != nil {
			if toolErr := ToolErrorResult(err); toolErr != nil {
				return toolErr, nil
			}
			return nil, err
		}
		return jsonResult(result)
	})
}
