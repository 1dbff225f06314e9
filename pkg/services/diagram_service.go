package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
	"github.com/ekaya-inc/ekaya-erd/pkg/render"
)

// DiagramReport is the outcome of a combined inference and render request.
// When only rendering fails the inference result is still present,
// Rendered is false and RenderErr holds the render error.
type DiagramReport struct {
	Result      *models.InferenceResult
	Description *models.DiagramDescription
	Diagram     *models.RenderedDiagram
	Rendered    bool
	RenderErr   error
}

// DiagramService infers a schema and renders it as an ER diagram.
type DiagramService interface {
	// Generate runs inference once, describes the result in the given mode
	// and renders it into the output directory under render.RunBaseName of
	// the run ID. The artifacts belong to the caller.
	Generate(ctx context.Context, tables models.TableSet, mode models.LabelMode) (*DiagramReport, error)
	// DOT runs inference and returns the DOT source without invoking the renderer.
	DOT(ctx context.Context, tables models.TableSet, mode models.LabelMode) (string, error)
}

type diagramService struct {
	inference SchemaInferenceService
	renderer  render.Renderer
	outputDir string
	logger    *zap.Logger
}

var _ DiagramService = (*diagramService)(nil)

// NewDiagramService creates a diagram service writing artifacts into outputDir.
func NewDiagramService(inference SchemaInferenceService, renderer render.Renderer, outputDir string, logger *zap.Logger) DiagramService {
	return &diagramService{
		inference: inference,
		renderer:  renderer,
		outputDir: outputDir,
		logger:    logger.Named("diagram"),
	}
}

func (s *diagramService) describe(ctx context.Context, tables models.TableSet, mode models.LabelMode) (*models.InferenceResult, *models.DiagramDescription, error) {
	result, err := s.inference.Infer(ctx, tables)
	if err != nil {
		return nil, nil, err
	}

	var desc *models.DiagramDescription
	err = runStage(apperrors.StageDiagramAssembly, func() error {
		var err error
		desc, err = BuildDiagramDescription(result, mode)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return result, desc, nil
}

func (s *diagramService) Generate(ctx context.Context, tables models.TableSet, mode models.LabelMode) (*DiagramReport, error) {
	result, desc, err := s.describe(ctx, tables, mode)
	if err != nil {
		return nil, err
	}

	report := &DiagramReport{Result: result, Description: desc}
	diagram, err := s.renderer.Render(ctx, desc, s.outputDir, render.RunBaseName(result.RunID))
	report.Diagram = diagram
	if err != nil {
		if apperrors.KindOf(err) == "" {
			err = apperrors.NewRenderError("render diagram", err)
		}
		s.logger.Warn("Diagram not rendered",
			zap.String("run_id", result.RunID.String()),
			zap.String("mode", string(mode)),
			zap.Error(err))
		report.RenderErr = err
		return report, nil
	}

	report.Rendered = true
	return report, nil
}

func (s *diagramService) DOT(ctx context.Context, tables models.TableSet, mode models.LabelMode) (string, error) {
	_, desc, err := s.describe(ctx, tables, mode)
	if err != nil {
		return "", err
	}
	source, err := render.BuildDOT(desc)
	if err != nil {
		return "", apperrors.NewInferenceError(apperrors.StageDiagramAssembly, fmt.Sprintf("build %s graph", mode), err)
	}
	return source, nil
}
