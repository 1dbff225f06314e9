package handlers

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
	"github.com/ekaya-inc/ekaya-erd/pkg/render"
	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

// multipartMemory is kept in memory while parsing uploads; the rest spills to disk.
const multipartMemory = 8 << 20

// --- Response Types ---

// SchemaResponse is the inference result keyed the way the upload page reads it.
type SchemaResponse struct {
	RunID         string                      `json:"run_id" yaml:"run_id"`
	SavedFiles    []string                    `json:"saved_files,omitempty" yaml:"saved_files,omitempty"`
	Tables        []models.TableSummary       `json:"tables" yaml:"tables"`
	PrimaryKeys   map[string][]string         `json:"primary_keys" yaml:"primary_keys"`
	PrimaryKeysID map[string][]string         `json:"primary_keys_id" yaml:"primary_keys_id"`
	Relationships []models.Relationship       `json:"relationships" yaml:"relationships"`
	Roles         map[string]models.TableRole `json:"roles" yaml:"roles"`
	Connectivity  models.Connectivity         `json:"connectivity" yaml:"connectivity"`
}

// DiagramResponse adds the render outcome to the inference result.
type DiagramResponse struct {
	SchemaResponse
	Mode            models.LabelMode `json:"mode"`
	DOTPath         string           `json:"dot_path,omitempty"`
	PNGPath         string           `json:"png_path,omitempty"`
	DiagramRendered bool             `json:"diagram_rendered"`
	RenderError     string           `json:"render_error,omitempty"`
}

// ClearResponse reports how many files were deleted.
type ClearResponse struct {
	Removed int `json:"removed"`
}

func toSchemaResponse(result *models.InferenceResult) SchemaResponse {
	return SchemaResponse{
		RunID:         result.RunID.String(),
		Tables:        result.Tables,
		PrimaryKeys:   result.UniqueKeysByTable(),
		PrimaryKeysID: result.SuffixKeysByTable(),
		Relationships: result.Relationships,
		Roles:         result.RolesByTable(),
		Connectivity:  result.Connectivity,
	}
}

// InferenceHandler serves uploads, schema inference and diagrams over the
// workspace's uploaded tables.
type InferenceHandler struct {
	workspace      *services.Workspace
	inference      services.SchemaInferenceService
	diagrams       services.DiagramService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewInferenceHandler creates a new InferenceHandler.
func NewInferenceHandler(
	workspace *services.Workspace,
	inference services.SchemaInferenceService,
	diagrams services.DiagramService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *InferenceHandler {
	return &InferenceHandler{
		workspace:      workspace,
		inference:      inference,
		diagrams:       diagrams,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.Named("inference-handler"),
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *InferenceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/uploads", h.Upload)
	mux.HandleFunc("DELETE /api/uploads", h.Clear)
	mux.HandleFunc("GET /api/schema", h.GetSchema)
	mux.HandleFunc("POST /api/diagram", h.Diagram)
	mux.HandleFunc("GET /api/diagram.png", h.DiagramImage)
	mux.HandleFunc("GET /api/diagram.dot", h.DiagramDOT)
}

// Upload handles POST /api/uploads
// Saves the .csv parts of files[] and returns the inference over all uploads.
func (h *InferenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.Info("Rejected upload", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_upload", "Request must be multipart/form-data within the upload limit"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files[]"]
	if len(files) == 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "no_files", "No selected files"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	for _, fh := range files {
		if fh.Filename == "" {
			if err := ErrorResponse(w, http.StatusBadRequest, "no_files", "No selected file"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	uploads := make([]services.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeServiceError(w, h.logger, "Failed to open upload", err)
			return
		}
		defer f.Close()
		uploads = append(uploads, services.Upload{Name: fh.Filename, Reader: f})
	}

	// A rejected batch leaves the workspace untouched.
	saved, err := h.workspace.SaveAll(uploads)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to save upload", err)
		return
	}
	result, ok := h.infer(w, r)
	if !ok {
		return
	}

	data := toSchemaResponse(result)
	data.SavedFiles = saved
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Clear handles DELETE /api/uploads
// Deletes every uploaded table and rendered artifact.
func (h *InferenceHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.workspace.Clear()
	if err != nil {
		writeServiceError(w, h.logger, "Failed to clear workspace", err)
		return
	}
	response := ApiResponse{Success: true, Data: ClearResponse{Removed: removed}, Message: "Files successfully deleted"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetSchema handles GET /api/schema
// Runs inference over the current uploads. ?format=yaml returns YAML.
func (h *InferenceHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	result, ok := h.infer(w, r)
	if !ok {
		return
	}

	data := toSchemaResponse(result)
	var err error
	if r.URL.Query().Get("format") == "yaml" {
		err = WriteYAML(w, http.StatusOK, data)
	} else {
		err = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data})
	}
	if err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Diagram handles POST /api/diagram?mode=roles|keys
// A render failure still returns the inference result with diagram_rendered=false.
func (h *InferenceHandler) Diagram(w http.ResponseWriter, r *http.Request) {
	report, mode, ok := h.generate(w, r)
	if !ok {
		return
	}

	data := DiagramResponse{
		SchemaResponse:  toSchemaResponse(report.Result),
		Mode:            mode,
		DiagramRendered: report.Rendered,
	}
	if report.Diagram != nil {
		data.DOTPath = report.Diagram.DOTPath
		if report.Rendered {
			data.PNGPath = report.Diagram.ImagePath
		}
	}
	if report.RenderErr != nil {
		_, msg := errorStatus(report.RenderErr)
		data.RenderError = msg + ": " + errorMessage(report.RenderErr, http.StatusBadGateway)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DiagramImage handles GET /api/diagram.png
// The diagram is recomputed from the current uploads on every request.
func (h *InferenceHandler) DiagramImage(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.generate(w, r)
	if !ok {
		return
	}
	// The artifacts exist only to serve this response.
	defer func() {
		if err := render.Remove(report.Diagram); err != nil {
			h.logger.Warn("Failed to remove diagram artifacts", zap.Error(err))
		}
	}()
	if !report.Rendered {
		writeServiceError(w, h.logger, "Diagram not rendered", report.RenderErr)
		return
	}

	f, err := os.Open(report.Diagram.ImagePath)
	if err != nil {
		writeServiceError(w, h.logger, "Rendered image missing",
			apperrors.NewRenderError(report.Diagram.ImagePath, apperrors.ErrNoArtifact))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeServiceError(w, h.logger, "Failed to stat image", err)
		return
	}
	if ct := mime.TypeByExtension("." + report.Diagram.Format); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, filepath.Base(report.Diagram.ImagePath), info.ModTime(), f)
}

// DiagramDOT handles GET /api/diagram.dot
// Returns the DOT source as an attachment without running the renderer.
func (h *InferenceHandler) DiagramDOT(w http.ResponseWriter, r *http.Request) {
	mode, ok := h.mode(w, r)
	if !ok {
		return
	}
	tables, ok := h.tables(w, r)
	if !ok {
		return
	}

	source, err := h.diagrams.DOT(r.Context(), tables, mode)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to build DOT", err)
		return
	}

	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="er_diagram.dot"`)
	if _, err := w.Write([]byte(source)); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *InferenceHandler) mode(w http.ResponseWriter, r *http.Request) (models.LabelMode, bool) {
	mode, err := models.ParseLabelMode(r.URL.Query().Get("mode"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_mode", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return "", false
	}
	return mode, true
}

func (h *InferenceHandler) tables(w http.ResponseWriter, r *http.Request) (models.TableSet, bool) {
	tables, err := h.workspace.LoadTables(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "Failed to load uploaded tables", err)
		return nil, false
	}
	return tables, true
}

func (h *InferenceHandler) infer(w http.ResponseWriter, r *http.Request) (*models.InferenceResult, bool) {
	tables, ok := h.tables(w, r)
	if !ok {
		return nil, false
	}
	result, err := h.inference.Infer(r.Context(), tables)
	if err != nil {
		writeServiceError(w, h.logger, "Schema inference failed", err)
		return nil, false
	}
	return result, true
}

func (h *InferenceHandler) generate(w http.ResponseWriter, r *http.Request) (*services.DiagramReport, models.LabelMode, bool) {
	mode, ok := h.mode(w, r)
	if !ok {
		return nil, "", false
	}
	tables, ok := h.tables(w, r)
	if !ok {
		return nil, "", false
	}
	report, err := h.diagrams.Generate(r.Context(), tables, mode)
	if err != nil {
		writeServiceError(w, h.logger, "Diagram generation failed", err)
		return nil, "", false
	}
	return report, mode, true
}
