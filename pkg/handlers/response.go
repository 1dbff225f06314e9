package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
)

// ApiResponse is the envelope of every successful JSON response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteYAML writes a YAML response and returns any encoding error.
func WriteYAML(w http.ResponseWriter, statusCode int, data any) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/yaml")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	_, err = w.Write(out)
	return err
}

// errorStatus maps an error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch apperrors.KindOf(err) {
	case apperrors.KindInput:
		return http.StatusBadRequest, "invalid_input"
	case apperrors.KindInference:
		return http.StatusInternalServerError, "inference_failed"
	case apperrors.KindRender:
		return http.StatusBadGateway, "render_failed"
	case apperrors.KindGeneration:
		return http.StatusBadGateway, "generation_failed"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}

// errorMessage is the client-facing text for err. Internal failures are not
// described beyond their stage; upstream failures are scrubbed of secrets.
func errorMessage(err error, status int) string {
	if status == http.StatusBadGateway {
		return logging.SanitizeError(err)
	}
	if status >= http.StatusInternalServerError {
		if stage := apperrors.StageOf(err); stage != "" {
			return "Failed during " + string(stage)
		}
		return "Internal server error"
	}
	return err.Error()
}

// writeServiceError logs err and writes the matching error response.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	status, code := errorStatus(err)
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("kind", string(apperrors.KindOf(err))),
		zap.String("stage", string(apperrors.StageOf(err))),
		zap.String("error", logging.SanitizeError(err)),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(msg, fields...)
	} else {
		logger.Info(msg, fields...)
	}

	if err := ErrorResponse(w, status, code, errorMessage(err, status)); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
