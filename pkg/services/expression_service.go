package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/config"
	"github.com/ekaya-inc/ekaya-erd/pkg/llm"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
	"github.com/ekaya-inc/ekaya-erd/pkg/prompts"
	"github.com/ekaya-inc/ekaya-erd/pkg/retry"
)

// ExpressionService converts query expressions between dialects with a language model.
// It shares nothing with schema inference.
type ExpressionService interface {
	// NewConversation returns an ID that correlates a user's conversion requests.
	NewConversation() uuid.UUID

	// Convert translates one expression. Failures of the model call are
	// reported as generation errors; an empty expression is an input error.
	Convert(ctx context.Context, req ExpressionRequest) (*ExpressionResult, error)
}

// ExpressionRequest is one conversion request.
type ExpressionRequest struct {
	Expression     string
	ConversationID *uuid.UUID
}

// ExpressionResult is the converted expression.
type ExpressionResult struct {
	ConversationID *uuid.UUID `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
	Source         string     `json:"expression" yaml:"expression"`
	Converted      string     `json:"dax_expression" yaml:"dax_expression"`
	Model          string     `json:"model" yaml:"model"`
}

// ExpressionServiceConfig configures the conversion call.
type ExpressionServiceConfig struct {
	SourceDialect string
	TargetDialect string
	Temperature   float64
	Timeout       time.Duration
	Retry         *retry.Config
}

type expressionService struct {
	client llm.LLMClient
	config ExpressionServiceConfig
	logger *zap.Logger
}

var _ ExpressionService = (*expressionService)(nil)

// NewExpressionService creates a new expression conversion service.
func NewExpressionService(client llm.LLMClient, config ExpressionServiceConfig, logger *zap.Logger) ExpressionService {
	return &expressionService{
		client: client,
		config: config,
		logger: logger.Named("expressions"),
	}
}

// NewExpressionServiceFromConfig builds the model client and the service from
// configuration. It returns nil without error when no model is configured.
func NewExpressionServiceFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (ExpressionService, error) {
	if !cfg.IsAvailable() {
		return nil, nil
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		logger.Warn("LLM_API_KEY is not set; expression conversion calls will likely be rejected",
			zap.String("provider", cfg.Provider))
	}

	client, err := llm.NewClientFromConfig(&llm.Config{
		Provider:  cfg.Provider,
		Endpoint:  cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	return NewExpressionService(client, ExpressionServiceConfig{
		SourceDialect: cfg.SourceDialect,
		TargetDialect: cfg.TargetDialect,
		Temperature:   cfg.Temperature,
		Timeout:       cfg.Timeout,
		Retry:         retryCfg,
	}, logger), nil
}

func (s *expressionService) NewConversation() uuid.UUID {
	return uuid.New()
}

func (s *expressionService) Convert(ctx context.Context, req ExpressionRequest) (*ExpressionResult, error) {
	expression := strings.TrimSpace(req.Expression)
	if expression == "" {
		return nil, apperrors.NewInputError(apperrors.StageGeneration, "expression is empty", nil)
	}

	if req.ConversationID != nil {
		ctx = llm.WithConversationID(ctx, *req.ConversationID)
	}
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	conversion := prompts.ExpressionConversion{
		SourceDialect: s.config.SourceDialect,
		TargetDialect: s.config.TargetDialect,
		Expression:    expression,
	}
	prompt := prompts.BuildExpressionConversionPrompt(conversion)
	system := prompts.ExpressionConversionSystemMessage(conversion)

	retryCfg := s.config.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	cfg := *retryCfg
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		s.logger.Warn("Retrying expression conversion",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.String("error", logging.SanitizeError(err)))
	}

	resp, err := retry.DoIfRetryable(ctx, &cfg, func() (*llm.GenerateResponseResult, error) {
		return s.client.GenerateResponse(ctx, prompt, system, s.config.Temperature)
	})
	if err != nil {
		s.logger.Error("Expression conversion failed",
			zap.String("model", s.client.GetModel()),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.NewGenerationError("expression conversion failed", err)
	}

	converted := llm.CleanText(resp.Content)
	if converted == "" {
		s.logger.Warn("Model returned no usable expression", zap.String("model", s.client.GetModel()))
		return nil, apperrors.NewGenerationError("no expression in model response", apperrors.ErrNoCandidate)
	}

	s.logger.Info("Converted expression",
		zap.Int("source_len", len(expression)),
		zap.Int("converted_len", len(converted)),
		zap.Int("total_tokens", resp.TotalTokens))

	return &ExpressionResult{
		ConversationID: req.ConversationID,
		Source:         expression,
		Converted:      converted,
		Model:          s.client.GetModel(),
	}, nil
}
