package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/adapters/tablesource"
	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// Workspace owns the upload directory holding CSV tables and the output
// directory holding rendered diagrams.
type Workspace struct {
	uploadDir string
	outputDir string
	maxBytes  int64
	logger    *zap.Logger
}

// NewWorkspace creates both directories if needed. maxBytes bounds a single
// saved file; zero or less disables the bound.
func NewWorkspace(uploadDir, outputDir string, maxBytes int64, logger *zap.Logger) (*Workspace, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if dir == "" {
			return nil, fmt.Errorf("workspace directories must not be empty")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Workspace{
		uploadDir: uploadDir,
		outputDir: outputDir,
		maxBytes:  maxBytes,
		logger:    logger.Named("workspace"),
	}, nil
}

// UploadDir returns the directory holding uploaded tables.
func (w *Workspace) UploadDir() string { return w.uploadDir }

// OutputDir returns the directory receiving rendered artifacts.
func (w *Workspace) OutputDir() string { return w.outputDir }

// Upload is one file offered to SaveAll.
type Upload struct {
	Name   string
	Reader io.Reader
}

// staged is an upload written to a temp file and parsed, not yet visible.
type staged struct {
	name string
	path string
	size int64
}

// Save stores r under the base name of name and returns that name. Files
// without the .csv extension are skipped and reported with an empty name.
func (w *Workspace) Save(name string, r io.Reader) (string, error) {
	stored, err := w.SaveAll([]Upload{{Name: name, Reader: r}})
	if err != nil || len(stored) == 0 {
		return "", err
	}
	return stored[0], nil
}

// SaveAll stores a batch of uploads and returns the stored base names in
// upload order. Every .csv file is parsed before any of them is moved into
// the upload directory, so a rejected batch leaves the workspace unchanged.
// Non-CSV files are skipped.
func (w *Workspace) SaveAll(uploads []Upload) ([]string, error) {
	var batch []staged
	defer func() {
		for _, f := range batch {
			os.Remove(f.path)
		}
	}()

	for _, u := range uploads {
		f, ok, err := w.stage(u)
		if err != nil {
			return nil, err
		}
		if ok {
			batch = append(batch, f)
		}
	}

	stored := make([]string, 0, len(batch))
	seen := make(map[string]bool, len(batch))
	for _, f := range batch {
		if err := os.Rename(f.path, filepath.Join(w.uploadDir, f.name)); err != nil {
			return stored, fmt.Errorf("store %s: %w", f.name, err)
		}
		w.logger.Debug("Saved upload", zap.String("file", f.name), zap.Int64("bytes", f.size))
		if !seen[f.name] {
			seen[f.name] = true
			stored = append(stored, f.name)
		}
	}
	return stored, nil
}

// stage writes one upload to a hidden temp file and parses it. ok is false
// for skipped non-CSV files.
func (w *Workspace) stage(u Upload) (f staged, ok bool, err error) {
	base := filepath.Base(strings.ReplaceAll(u.Name, "\\", "/"))
	if u.Name == "" || base == "." || base == "/" || base == ".." {
		return f, false, apperrors.NewInputError(apperrors.StageLoad, "missing file name", nil)
	}
	if !tablesource.IsCSVFile(base) {
		w.logger.Debug("Skipping non-CSV upload", zap.String("file", base))
		return f, false, nil
	}

	tmp, err := os.CreateTemp(w.uploadDir, ".upload-*")
	if err != nil {
		return f, false, fmt.Errorf("create temp file: %w", err)
	}
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmp.Name())
		}
	}()

	src := u.Reader
	if w.maxBytes > 0 {
		src = io.LimitReader(u.Reader, w.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return f, false, fmt.Errorf("write %s: %w", base, err)
	}
	if w.maxBytes > 0 && n > w.maxBytes {
		return f, false, apperrors.NewInputError(apperrors.StageLoad,
			fmt.Sprintf("%s exceeds the %d byte upload limit", base, w.maxBytes), nil)
	}

	table, err := readStaged(base, tmp.Name())
	if err != nil {
		return f, false, asLoadError(err, "parse "+base)
	}
	if err := table.Validate(); err != nil {
		return f, false, asLoadError(err, "validate "+base)
	}

	keep = true
	return staged{name: base, path: tmp.Name(), size: n}, true, nil
}

func readStaged(name, path string) (*models.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()
	return tablesource.ReadCSV(name, file)
}

// LoadTables reads every uploaded .csv file, sorted by name.
func (w *Workspace) LoadTables(ctx context.Context) (models.TableSet, error) {
	tables, err := tablesource.LoadCSVDir(ctx, w.uploadDir)
	if err != nil {
		return nil, asLoadError(err, "load uploaded tables")
	}
	return tables, nil
}

// Clear deletes every file in the upload and output directories.
// Subdirectories and the directories themselves are kept.
func (w *Workspace) Clear() (int, error) {
	removed := 0
	for _, dir := range []string{w.uploadDir, w.outputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
			}
			removed++
		}
	}
	w.logger.Info("Cleared workspace", zap.Int("removed", removed))
	return removed, nil
}
