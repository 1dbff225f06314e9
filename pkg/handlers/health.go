package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/config"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse reports liveness and the state of external collaborators.
type HealthResponse struct {
	Status   string          `json:"status"`
	Renderer *RendererHealth `json:"renderer,omitempty"`
	LLM      LLMHealth       `json:"llm"`
}

// RendererHealth reports whether the Graphviz binary was found.
type RendererHealth struct {
	Binary    string `json:"binary"`
	Available bool   `json:"available"`
}

// LLMHealth reports the configured expression model. It never calls the model.
type LLMHealth struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
}

// RendererProbe reports renderer availability.
type RendererProbe interface {
	Available() bool
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg      *config.Config
	renderer RendererProbe
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. renderer may be nil.
func NewHealthHandler(cfg *config.Config, renderer RendererProbe, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, renderer: renderer, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// The service is up even when dot is missing; uploads and schema inference
// still work and diagrams report a render error.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status: "ok",
		LLM: LLMHealth{
			Provider:   h.cfg.LLM.Provider,
			Model:      h.cfg.LLM.Model,
			Configured: h.cfg.LLM.IsAvailable() && h.cfg.LLM.APIKey != "",
		},
	}
	if h.renderer != nil {
		response.Renderer = &RendererHealth{
			Binary:    h.cfg.Render.DotBinary,
			Available: h.renderer.Available(),
		}
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-erd",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
