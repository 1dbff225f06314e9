package tablesource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"     // MySQL driver
	_ "github.com/mattn/go-sqlite3"        // SQLite driver
	_ "github.com/microsoft/go-mssqldb"    // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/config"
	"github.com/ekaya-inc/ekaya-erd/pkg/logging"
	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// dialect holds the driver-specific SQL of a database/sql source.
type dialect struct {
	sourceType    string
	driver        string
	defaultSchema string
	listTables    func(schema string) (string, []any)
	quote         func(name string) string
	sample        func(qualified string, limit int) string
	qualify       func(schema, table string, quote func(string) string) string
}

func limitQuery(qualified string, limit int) string {
	if limit > 0 {
		return fmt.Sprintf("SELECT * FROM %s LIMIT %d", qualified, limit)
	}
	return "SELECT * FROM " + qualified
}

func qualifyWithSchema(schema, table string, quote func(string) string) string {
	if schema == "" {
		return quote(table)
	}
	return quote(schema) + "." + quote(table)
}

var (
	sqliteDialect = dialect{
		sourceType: "sqlite",
		driver:     "sqlite3",
		listTables: func(string) (string, []any) {
			return `SELECT name FROM sqlite_master
				WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
				ORDER BY name`, nil
		},
		quote: func(name string) string {
			return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		},
		sample: limitQuery,
		qualify: func(_, table string, quote func(string) string) string {
			return quote(table)
		},
	}

	mysqlDialect = dialect{
		sourceType: "mysql",
		driver:     "mysql",
		listTables: func(schema string) (string, []any) {
			return `SELECT table_name FROM information_schema.tables
				WHERE table_type = 'BASE TABLE'
				  AND table_schema = COALESCE(NULLIF(?, ''), DATABASE())
				ORDER BY table_name`, []any{schema}
		},
		quote: func(name string) string {
			return "`" + strings.ReplaceAll(name, "`", "``") + "`"
		},
		sample:  limitQuery,
		qualify: qualifyWithSchema,
	}

	sqlserverDialect = dialect{
		sourceType:    "sqlserver",
		driver:        "sqlserver",
		defaultSchema: "dbo",
		listTables: func(schema string) (string, []any) {
			return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
				WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = @p1
				ORDER BY TABLE_NAME`, []any{schema}
		},
		// QUOTENAME in SQL Server uses square brackets and escapes ] as ]]
		quote: func(name string) string {
			return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
		},
		sample: func(qualified string, limit int) string {
			if limit > 0 {
				return fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, qualified)
			}
			return "SELECT * FROM " + qualified
		},
		qualify: qualifyWithSchema,
	}
)

func init() {
	for _, d := range []struct {
		dialect dialect
		info    SourceInfo
	}{
		{sqliteDialect, SourceInfo{Type: "sqlite", DisplayName: "SQLite", Description: "Tables of a SQLite database file"}},
		{mysqlDialect, SourceInfo{Type: "mysql", DisplayName: "MySQL", Description: "Tables of a MySQL database, sampled"}},
		{sqlserverDialect, SourceInfo{Type: "sqlserver", DisplayName: "Microsoft SQL Server", Description: "Tables of one SQL Server schema, sampled"}},
	} {
		Register(Registration{
			Info: d.info,
			Factory: func(ctx context.Context, opts Options, logger *zap.Logger) (Source, error) {
				return NewSQLSource(ctx, d.dialect, opts, logger)
			},
		})
	}
}

// SQLSource loads tables through database/sql.
type SQLSource struct {
	db      *sql.DB
	dialect dialect
	opts    Options
	logger  *zap.Logger
}

// NewSQLSource opens and pings a database/sql connection for the dialect.
func NewSQLSource(ctx context.Context, d dialect, opts Options, logger *zap.Logger) (*SQLSource, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("%s source requires a connection string", d.sourceType)
	}

	db, err := sql.Open(d.driver, config.ResolveDSNForDocker(opts.Location))
	if err != nil {
		return nil, fmt.Errorf("open %s: %s", d.sourceType, logging.SanitizeError(err))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %s", d.sourceType, logging.SanitizeError(err))
	}

	logger = logger.Named(d.sourceType + "-source")
	logger.Debug("Connected", zap.String("dsn", logging.SanitizeConnectionString(opts.Location)))

	return &SQLSource{
		db:      db,
		dialect: d,
		opts:    opts,
		logger:  logger,
	}, nil
}

func (s *SQLSource) schema() string {
	if s.opts.Schema != "" {
		return s.opts.Schema
	}
	return s.dialect.defaultSchema
}

// ListTables returns the base tables of the configured schema, sorted by name.
func (s *SQLSource) ListTables(ctx context.Context) ([]string, error) {
	query, args := s.dialect.listTables(s.schema())
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if s.opts.wants(name) {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// LoadTables implements Source.
func (s *SQLSource) LoadTables(ctx context.Context) (models.TableSet, error) {
	names, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make(models.TableSet, 0, len(names))
	for _, name := range names {
		t, err := s.loadTable(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	s.logger.Debug("Loaded tables",
		zap.String("schema", s.schema()),
		zap.Int("tables", len(tables)),
		zap.Int("max_rows", s.opts.MaxRows))
	return tables, nil
}

func (s *SQLSource) loadTable(ctx context.Context, name string) (*models.Table, error) {
	qualified := s.dialect.qualify(s.schema(), name, s.dialect.quote)
	query := s.dialect.sample(qualified, s.opts.MaxRows)
	s.logger.Debug("Sampling table", zap.String("query", logging.SanitizeQuery(query)))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample table %s: %w", name, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types of %s: %w", name, err)
	}

	table := &models.Table{Name: name, Columns: make([]models.Column, len(colTypes))}
	numeric := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		table.Columns[i].Name = ct.Name()
		numeric[i] = isNumericType(ct.DatabaseTypeName())
	}

	dest := make([]any, len(colTypes))
	ptrs := make([]any, len(colTypes))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", name, err)
		}
		for i, v := range dest {
			table.Columns[i].Values = append(table.Columns[i].Values, toValue(v, numeric[i]))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", name, err)
	}
	s.opts.markSample(table)
	return table, nil
}

// Close implements Source.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
