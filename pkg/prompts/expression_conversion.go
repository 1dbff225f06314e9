// Package prompts builds the instructions sent to language models.
package prompts

import (
	"fmt"
	"strings"
)

// Default dialects for expression conversion.
const (
	DefaultSourceDialect = "Tableau"
	DefaultTargetDialect = "DAX"
)

// ExpressionConversion describes one conversion request.
type ExpressionConversion struct {
	SourceDialect string
	TargetDialect string
	Expression    string
}

func (c ExpressionConversion) dialects() (string, string) {
	source, target := c.SourceDialect, c.TargetDialect
	if source == "" {
		source = DefaultSourceDialect
	}
	if target == "" {
		target = DefaultTargetDialect
	}
	return source, target
}

// ExpressionConversionSystemMessage returns the system message for conversions.
func ExpressionConversionSystemMessage(c ExpressionConversion) string {
	source, target := c.dialects()
	return fmt.Sprintf("You are an expert in %s calculated fields and %s measures. "+
		"You translate expressions between them exactly, keeping field and table names unchanged.", source, target)
}

// BuildExpressionConversionPrompt creates the user prompt. The model must answer
// with the converted expression only.
func BuildExpressionConversionPrompt(c ExpressionConversion) string {
	source, target := c.dialects()

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Convert this %s expression into a %s expression.\n", source, target)
	fmt.Fprintf(&prompt, "Give me the %s expression as output. Do not explain the expression at any point.\n", target)
	prompt.WriteString("Do not add commentary, headings or markdown.\n\n")
	fmt.Fprintf(&prompt, "%s expression:\n", source)
	prompt.WriteString(strings.TrimSpace(c.Expression))
	prompt.WriteString("\n")
	return prompt.String()
}
