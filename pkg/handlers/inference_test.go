package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
	"github.com/ekaya-inc/ekaya-erd/pkg/render"
	"github.com/ekaya-inc/ekaya-erd/pkg/services"
)

const (
	ordersCSV    = "order_id,customer_id,amount\n1,10,5.5\n2,10,7\n3,20,5.5\n4,30,9\n"
	customersCSV = "customer_id,name\n10,Ada\n20,Grace\n30,Edsger\n"
)

// fileRenderer writes a small image so the handler can serve it.
type fileRenderer struct {
	fail error
}

var _ render.Renderer = (*fileRenderer)(nil)

func (f *fileRenderer) Format() string { return "png" }

func (f *fileRenderer) Render(_ context.Context, desc *models.DiagramDescription, outDir, baseName string) (*models.RenderedDiagram, error) {
	out := &models.RenderedDiagram{
		Format:    "png",
		DOTPath:   filepath.Join(outDir, baseName+".dot"),
		ImagePath: filepath.Join(outDir, baseName+".png"),
	}
	if f.fail != nil {
		return out, f.fail
	}
	if err := os.WriteFile(out.ImagePath, []byte("\x89PNG fake"), 0o644); err != nil {
		return nil, err
	}
	out.ImageSize = 9
	return out, nil
}

type testServer struct {
	mux       *http.ServeMux
	workspace *services.Workspace
}

func newTestServer(t *testing.T, renderer render.Renderer) *testServer {
	t.Helper()
	root := t.TempDir()
	ws, err := services.NewWorkspace(filepath.Join(root, "uploads"), filepath.Join(root, "static"), 1<<20, zap.NewNop())
	require.NoError(t, err)

	inference := services.NewSchemaInferenceService(services.SchemaInferenceConfig{ExtractionWorkers: 2}, zap.NewNop())
	diagrams := services.NewDiagramService(inference, renderer, ws.OutputDir(), zap.NewNop())

	mux := http.NewServeMux()
	NewInferenceHandler(ws, inference, diagrams, 1<<20, zap.NewNop()).RegisterRoutes(mux)
	return &testServer{mux: mux, workspace: ws}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, files map[string]string) {
	t.Helper()
	for name, body := range files {
		_, err := s.workspace.Save(name, strings.NewReader(body))
		require.NoError(t, err)
	}
}

func uploadRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, body := range files {
		part, err := mw.CreateFormFile("files[]", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type schemaEnvelope struct {
	Success bool           `json:"success"`
	Data    SchemaResponse `json:"data"`
}

type diagramEnvelope struct {
	Success bool            `json:"success"`
	Data    DiagramResponse `json:"data"`
}

func TestUpload_ScenarioA(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})

	rec := srv.do(t, uploadRequest(t, map[string]string{
		"orders.csv":    ordersCSV,
		"customers.csv": customersCSV,
		"readme.txt":    "ignored",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp schemaEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.ElementsMatch(t, []string{"orders.csv", "customers.csv"}, resp.Data.SavedFiles)

	assert.Equal(t, []string{"order_id"}, resp.Data.PrimaryKeys["orders.csv"])
	assert.Equal(t, []string{"customer_id", "name"}, resp.Data.PrimaryKeys["customers.csv"])
	assert.Equal(t, []string{"order_id", "customer_id"}, resp.Data.PrimaryKeysID["orders.csv"])
	assert.Equal(t, []models.Relationship{
		{KeyTable: "customers.csv", OtherTable: "orders.csv", Column: "customer_id"},
	}, resp.Data.Relationships)
	assert.Equal(t, models.TableRoleFact, resp.Data.Roles["customers.csv"])
	assert.Equal(t, models.TableRoleDimension, resp.Data.Roles["orders.csv"])
}

func TestUpload_NoFiles(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})

	rec := srv.do(t, uploadRequest(t, map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "no_files", body["error"])
}

func TestUpload_NotMultipart(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := srv.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_OnlyNonCSVIsInputError(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})

	rec := srv.do(t, uploadRequest(t, map[string]string{"orders.CSV": ordersCSV}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "invalid_input", body["error"])
}

func TestUpload_RaggedCSV(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})

	rec := srv.do(t, uploadRequest(t, map[string]string{
		"bad.csv":    "a,b\n1,2,3\n",
		"orders.csv": ordersCSV,
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing from the rejected batch is kept.
	entries, err := os.ReadDir(srv.workspace.UploadDir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	rec = srv.do(t, uploadRequest(t, map[string]string{"orders.csv": ordersCSV, "customers.csv": customersCSV}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpload_ReportsStoredNames(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})

	rec := srv.do(t, uploadRequest(t, map[string]string{`C:\data\orders.csv`: ordersCSV}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp schemaEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"orders.csv"}, resp.Data.SavedFiles)
	assert.FileExists(t, filepath.Join(srv.workspace.UploadDir(), "orders.csv"))
}

func TestGetSchema_YAML(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV, "customers.csv": customersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/schema?format=yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "primary_keys:")
	assert.Contains(t, rec.Body.String(), "key_table: customers.csv")
}

func TestGetSchema_EmptyWorkspace(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})

	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiagram_Rendered(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV, "customers.csv": customersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodPost, "/api/diagram?mode=keys", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp diagramEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Data.DiagramRendered)
	assert.Equal(t, models.LabelModeKeys, resp.Data.Mode)
	assert.Equal(t, filepath.Join(srv.workspace.OutputDir(), "er_diagram-"+resp.Data.RunID+".png"), resp.Data.PNGPath)
	assert.FileExists(t, resp.Data.PNGPath)
	assert.Empty(t, resp.Data.RenderError)
}

func TestDiagram_PartialSuccess(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{fail: apperrors.NewRenderError("dot failed", apperrors.ErrNoArtifact)})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV, "customers.csv": customersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodPost, "/api/diagram", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp diagramEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Data.DiagramRendered)
	assert.Contains(t, resp.Data.RenderError, "render_failed")
	assert.Empty(t, resp.Data.PNGPath)
	assert.Len(t, resp.Data.Relationships, 1)
	assert.Equal(t, models.LabelModeRoles, resp.Data.Mode)
}

func TestDiagram_InvalidMode(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodPost, "/api/diagram?mode=fancy", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiagramImage(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV, "customers.csv": customersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/diagram.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG fake", rec.Body.String())

	// Served artifacts are not left behind.
	entries, err := os.ReadDir(srv.workspace.OutputDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiagramImage_RenderFailureIs502(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{fail: apperrors.NewRenderError("dot failed", apperrors.ErrNoArtifact)})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/diagram.png", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDiagramDOT(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{fail: apperrors.NewRenderError("unused", nil)})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV, "customers.csv": customersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/diagram.dot?mode=roles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "er_diagram.dot")
	assert.Contains(t, rec.Body.String(), "digraph ER")
	assert.Contains(t, rec.Body.String(), `"customer_id"`)
}

func TestClear(t *testing.T) {
	srv := newTestServer(t, &fileRenderer{})
	srv.seed(t, map[string]string{"orders.csv": ordersCSV})

	rec := srv.do(t, httptest.NewRequest(http.MethodDelete, "/api/uploads", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
