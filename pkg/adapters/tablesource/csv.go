package tablesource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// CSVExtension is the only file extension loaded from a directory.
const CSVExtension = ".csv"

// naTokens are the cell spellings read as null.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

func init() {
	Register(Registration{
		Info: SourceInfo{
			Type:        "csv",
			DisplayName: "CSV directory",
			Description: "Every .csv file in a directory, one table per file",
		},
		Factory: func(ctx context.Context, opts Options, logger *zap.Logger) (Source, error) {
			return NewCSVDirSource(opts, logger)
		},
	})
}

// IsCSVFile reports whether name has the .csv extension (case-sensitive).
func IsCSVFile(name string) bool {
	return strings.HasSuffix(name, CSVExtension)
}

// ReadCSV parses one CSV document into a table named name.
//
// The first record is the header. Rows shorter than the header are padded
// with nulls; longer rows are an input error. A column is numeric when every
// non-null cell parses as a number, otherwise every non-null cell is text.
func ReadCSV(name string, r io.Reader) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewInputError(apperrors.StageLoad,
			fmt.Sprintf("%s: no columns to parse", name), nil)
	}
	if err != nil {
		return nil, apperrors.NewInputError(apperrors.StageLoad,
			fmt.Sprintf("%s: read header", name), err)
	}

	names := columnNames(header)
	raw := make([][]string, len(names))

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewInputError(apperrors.StageLoad,
				fmt.Sprintf("%s: parse rows", name), err)
		}
		if len(record) > len(names) {
			line, _ := reader.FieldPos(0)
			return nil, apperrors.NewInputError(apperrors.StageLoad,
				fmt.Sprintf("%s: line %d has %d fields, expected %d", name, line, len(record), len(names)),
				apperrors.ErrRaggedTable)
		}
		for i := range names {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			raw[i] = append(raw[i], cell)
		}
	}

	table := &models.Table{Name: name, Columns: make([]models.Column, len(names))}
	for i, colName := range names {
		table.Columns[i] = typeColumn(colName, raw[i])
	}
	return table, nil
}

// columnNames fills blank headers and de-duplicates repeated ones
// ("x", "x" -> "x", "x.1").
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		if n, dup := seen[h]; dup {
			for {
				n++
				name = fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[h] = n
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

func typeColumn(name string, cells []string) models.Column {
	values := make([]models.Value, len(cells))
	numbers := make([]float64, len(cells))
	numeric := true

	for i, cell := range cells {
		if naTokens[cell] {
			values[i] = models.NullValue()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			numeric = false
			continue
		}
		numbers[i] = f
	}

	for i, cell := range cells {
		if naTokens[cell] {
			continue
		}
		if numeric {
			values[i] = floatValue(numbers[i])
		} else {
			values[i] = models.TextValue(cell)
		}
	}
	return models.Column{Name: name, Values: values}
}

// ReadCSVFile reads one CSV file; the table is named after the file's base name.
func ReadCSVFile(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(filepath.Base(path), f)
}

// LoadCSVDir reads every .csv file in dir, sorted by file name.
func LoadCSVDir(ctx context.Context, dir string) (models.TableSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && IsCSVFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	tables := make(models.TableSet, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := ReadCSVFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// CSVDirSource loads tables from a directory of CSV files.
type CSVDirSource struct {
	opts   Options
	logger *zap.Logger
}

// NewCSVDirSource creates a CSV directory source. opts.Location is the directory.
func NewCSVDirSource(opts Options, logger *zap.Logger) (*CSVDirSource, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("csv source requires a directory")
	}
	info, err := os.Stat(opts.Location)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csv source: %s is not a directory", opts.Location)
	}
	return &CSVDirSource{opts: opts, logger: logger.Named("csv-source")}, nil
}

// LoadTables implements Source.
func (s *CSVDirSource) LoadTables(ctx context.Context) (models.TableSet, error) {
	all, err := LoadCSVDir(ctx, s.opts.Location)
	if err != nil {
		return nil, err
	}

	tables := make(models.TableSet, 0, len(all))
	for _, t := range all {
		if s.opts.wants(t.Name) {
			tables = append(tables, t)
		}
	}
	s.logger.Debug("Loaded CSV tables",
		zap.String("dir", s.opts.Location),
		zap.Int("tables", len(tables)))
	return tables, nil
}

// Close implements Source.
func (s *CSVDirSource) Close() error {
	return nil
}
