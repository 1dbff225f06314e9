package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// DefaultBaseName is the stable artifact name. Concurrent runs render under
// RunBaseName and only a single-owner caller promotes to this name.
const DefaultBaseName = "er_diagram"

// RunBaseName names the artifacts of one inference run so that concurrent
// runs sharing an output directory never touch each other's files.
func RunBaseName(runID uuid.UUID) string {
	return DefaultBaseName + "-" + runID.String()
}

// Promote renames the artifacts of d to baseName within their directory and
// returns the renamed diagram. A missing image is skipped so a DOT file left
// by a failed render can still be promoted.
func Promote(d *models.RenderedDiagram, baseName string) (*models.RenderedDiagram, error) {
	if d == nil {
		return nil, fmt.Errorf("nil diagram")
	}
	out := *d
	if d.DOTPath != "" {
		out.DOTPath = filepath.Join(filepath.Dir(d.DOTPath), baseName+".dot")
		if err := os.Rename(d.DOTPath, out.DOTPath); err != nil {
			return nil, fmt.Errorf("promote DOT file: %w", err)
		}
	}
	if d.ImagePath != "" {
		out.ImagePath = filepath.Join(filepath.Dir(d.ImagePath), baseName+"."+d.Format)
		if err := os.Rename(d.ImagePath, out.ImagePath); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("promote image: %w", err)
			}
			out.ImagePath = ""
		}
	}
	return &out, nil
}

// Remove deletes the artifacts of d, ignoring files that are already gone.
func Remove(d *models.RenderedDiagram) error {
	if d == nil {
		return nil
	}
	for _, path := range []string{d.DOTPath, d.ImagePath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Renderer produces a diagram image from a description.
type Renderer interface {
	// Render writes <baseName>.dot and <baseName>.<format> into outDir.
	// On failure the returned diagram still carries DOTPath when the DOT
	// file was written.
	Render(ctx context.Context, desc *models.DiagramDescription, outDir, baseName string) (*models.RenderedDiagram, error)
	Format() string
}

// Config configures the dot renderer.
type Config struct {
	Binary  string
	Format  string
	Timeout time.Duration
}

// DotRenderer shells out to the Graphviz dot binary.
type DotRenderer struct {
	cfg    Config
	logger *zap.Logger
}

var _ Renderer = (*DotRenderer)(nil)

// NewDotRenderer applies defaults (dot, png, 30s) to empty config fields.
func NewDotRenderer(cfg Config, logger *zap.Logger) *DotRenderer {
	if cfg.Binary == "" {
		cfg.Binary = "dot"
	}
	if cfg.Format == "" {
		cfg.Format = "png"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &DotRenderer{cfg: cfg, logger: logger.Named("renderer")}
}

// Format returns the image format passed to dot -T.
func (r *DotRenderer) Format() string {
	return r.cfg.Format
}

// Available reports whether the dot binary can be found.
func (r *DotRenderer) Available() bool {
	_, err := exec.LookPath(r.cfg.Binary)
	return err == nil
}

// Render implements Renderer.
func (r *DotRenderer) Render(ctx context.Context, desc *models.DiagramDescription, outDir, baseName string) (*models.RenderedDiagram, error) {
	source, err := BuildDOT(desc)
	if err != nil {
		return nil, apperrors.NewRenderError("build graph", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperrors.NewRenderError("create output directory", err)
	}

	out := &models.RenderedDiagram{
		Format:    r.cfg.Format,
		DOTPath:   filepath.Join(outDir, baseName+".dot"),
		ImagePath: filepath.Join(outDir, baseName+"."+r.cfg.Format),
	}
	if err := os.WriteFile(out.DOTPath, []byte(source), 0o644); err != nil {
		return nil, apperrors.NewRenderError("write DOT file", err)
	}

	// A stale image from a previous run must not pass for this one.
	if err := os.Remove(out.ImagePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, apperrors.NewRenderError("remove previous image", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.cfg.Binary, "-T"+r.cfg.Format, "-o", out.ImagePath, out.DOTPath)
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		msg := "dot failed"
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg = "dot failed: " + s
		}
		r.logger.Warn("Render failed", zap.String("binary", r.cfg.Binary), zap.Error(err))
		return out, apperrors.NewRenderError(msg, err)
	}

	info, err := os.Stat(out.ImagePath)
	if err != nil || info.Size() == 0 {
		return out, apperrors.NewRenderError(out.ImagePath, apperrors.ErrNoArtifact)
	}
	out.ImageSize = info.Size()

	r.logger.Debug("Rendered diagram",
		zap.String("image", out.ImagePath),
		zap.Int64("bytes", out.ImageSize),
		zap.Int("nodes", len(desc.Nodes)),
		zap.Int("edges", len(desc.Edges)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
