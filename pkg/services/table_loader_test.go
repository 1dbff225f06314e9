package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/adapters/tablesource"
	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
)

func TestLoadTableSource_CSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("id\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("id\n1\n"), 0o644))

	tables, err := LoadTableSource(context.Background(), "csv", tablesource.Options{Location: dir}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, tables.Names())
}

func TestLoadTableSource_Errors(t *testing.T) {
	tests := []struct {
		name       string
		sourceType string
		opts       tablesource.Options
	}{
		{name: "unknown type", sourceType: "oracle", opts: tablesource.Options{Location: "x"}},
		{name: "missing dir", sourceType: "csv", opts: tablesource.Options{Location: filepath.Join(t.TempDir(), "nope")}},
		{name: "no location", sourceType: "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTableSource(context.Background(), tt.sourceType, tt.opts, zap.NewNop())
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindInput))
			assert.Equal(t, apperrors.StageLoad, apperrors.StageOf(err))
		})
	}
}

func TestLoadTableSource_CanceledContextPassesThrough(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("id\n1\n"), 0o644))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadTableSource(ctx, "csv", tablesource.Options{Location: dir}, zap.NewNop())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, apperrors.KindOf(err))
}
