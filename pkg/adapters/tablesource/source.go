// Package tablesource loads tabular datasets for schema inference from CSV
// files and SQL databases.
package tablesource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// Source produces a table set. Implementations own their connections and
// release them on Close.
type Source interface {
	LoadTables(ctx context.Context) (models.TableSet, error)
	Close() error
}

// Options select what a source loads.
type Options struct {
	// Location is a directory for csv, a file path for sqlite and a DSN otherwise.
	Location string
	// Schema restricts database sources to one schema. Empty uses the
	// source's default (public, dbo, or the connected database).
	Schema string
	// Tables restricts loading to these table names. Empty loads all.
	Tables []string
	// MaxRows caps the rows sampled per database table. Zero means no cap.
	MaxRows int
}

func (o Options) wants(table string) bool {
	if len(o.Tables) == 0 {
		return true
	}
	for _, t := range o.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// markSample records the row cap on a table that reached it. Keys found on
// such a table hold for the sample only.
func (o Options) markSample(t *models.Table) {
	if o.MaxRows > 0 && t.RowCount() >= o.MaxRows {
		t.SampleLimit = o.MaxRows
	}
}

// SourceInfo describes a registered source type.
type SourceInfo struct {
	Type        string `json:"type"`         // "csv", "postgres", "sqlserver", "mysql", "sqlite"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// Registration contains info plus the factory for a source type.
type Registration struct {
	Info    SourceInfo
	Factory func(ctx context.Context, opts Options, logger *zap.Logger) (Source, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each source's init() function.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredSources returns info for all registered sources, sorted by type.
func RegisteredSources() []SourceInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SourceInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// Open creates a source of the given type.
func Open(ctx context.Context, sourceType string, opts Options, logger *zap.Logger) (Source, error) {
	registryMu.RLock()
	reg, ok := registry[sourceType]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown table source type %q", sourceType)
	}
	return reg.Factory(ctx, opts, logger)
}

// Load opens a source, loads its tables and closes it.
func Load(ctx context.Context, sourceType string, opts Options, logger *zap.Logger) (models.TableSet, error) {
	src, err := Open(ctx, sourceType, opts, logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return src.LoadTables(ctx)
}
