package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

// maxExpressionBodyBytes bounds the JSON body of a conversion request.
const maxExpressionBodyBytes = 64 << 10

// ConvertExpressionRequest is the body of POST /api/expressions/convert.
type ConvertExpressionRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id,omitempty"`
}

// SessionResponse carries a new conversation ID.
type SessionResponse struct {
	ChatID string `json:"chat_id"`
}

// ExpressionHandler exposes the expression conversion service.
type ExpressionHandler struct {
	expressions services.ExpressionService
	logger      *zap.Logger
}

// NewExpressionHandler creates a new ExpressionHandler. A nil service makes
// every route answer 503.
func NewExpressionHandler(expressions services.ExpressionService, logger *zap.Logger) *ExpressionHandler {
	return &ExpressionHandler{
		expressions: expressions,
		logger:      logger.Named("expression-handler"),
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *ExpressionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/expressions/sessions", h.StartSession)
	mux.HandleFunc("POST /api/expressions/convert", h.Convert)
}

// StartSession handles POST /api/expressions/sessions
func (h *ExpressionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	id := h.expressions.NewConversation()
	response := ApiResponse{Success: true, Data: SessionResponse{ChatID: id.String()}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Convert handles POST /api/expressions/convert
func (h *ExpressionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var req ConvertExpressionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExpressionBodyBytes)).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	serviceReq := services.ExpressionRequest{Expression: req.Message}
	if req.ChatID != "" {
		chatID, err := uuid.Parse(req.ChatID)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_chat_id", "chat_id must be a UUID"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		serviceReq.ConversationID = &chatID
	}

	result, err := h.expressions.Convert(r.Context(), serviceReq)
	if err != nil {
		writeServiceError(w, h.logger, "Expression conversion failed", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ExpressionHandler) available(w http.ResponseWriter) bool {
	if h.expressions != nil {
		return true
	}
	if err := ErrorResponse(w, http.StatusServiceUnavailable, "llm_unavailable", "Expression conversion is not configured"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
	return false
}
